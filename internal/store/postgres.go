// Package store persists imported specimens, import history and mapping
// presets. Postgres is the production store; Memory backs tests and dry runs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// Postgres implements core.SpecimenStore, core.HistoryStore,
// core.PresetStore and core.HistoryPruner on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store on pool. The schema must already exist; see Migrate.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// FindByInventoryID returns the id of the owner's record with inventoryID.
func (p *Postgres) FindByInventoryID(ctx context.Context, ownerID, inventoryID string) (string, bool, error) {
	var id pgtype.UUID
	err := p.pool.QueryRow(ctx,
		`SELECT id FROM specimens WHERE owner_id = $1 AND inventory_id = $2 LIMIT 1`,
		ownerID, inventoryID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &core.PersistenceError{
			Message: fmt.Sprintf("look up inventory id %q: %v", inventoryID, err),
			Err:     err,
		}
	}
	return uuidToString(id), true, nil
}

const insertSpecimen = `
INSERT INTO specimens (
	id, owner_id, import_id,
	species, genus, family, taxon_order, taxon_class, phylum, common_name,
	inventory_id, element, description,
	era, period, epoch, age, formation,
	locality, country, region, latitude, longitude, discovery_date, collector,
	width, height, length, size_unit, weight, weight_unit,
	acquisition_date, acquisition_method, acquired_from, condition,
	purchase_price, estimated_value, currency,
	tags, notes, storage_location,
	is_favorite, image_urls, is_public, share_url, created_at
) VALUES (
	$1, $2, $3,
	$4, $5, $6, $7, $8, $9, $10,
	$11, $12, $13,
	$14, $15, $16, $17, $18,
	$19, $20, $21, $22, $23, $24, $25,
	$26, $27, $28, $29, $30, $31,
	$32, $33, $34, $35,
	$36, $37, $38,
	$39, $40, $41,
	$42, $43, $44, $45, $46
) RETURNING id`

// Save inserts a specimen. A unique violation on the inventory id is reported
// as a duplicate so a concurrent insert is counted like any other duplicate.
func (p *Postgres) Save(ctx context.Context, s *core.Specimen) (string, error) {
	var id pgtype.UUID
	err := p.pool.QueryRow(ctx, insertSpecimen,
		toPgUUID(s.ID), s.OwnerID, toPgUUID(s.ImportID),
		s.Species, toPgText(s.Genus), toPgText(s.Family), toPgText(s.Order), toPgText(s.Class),
		toPgText(s.Phylum), toPgText(s.CommonName),
		toPgText(s.InventoryID), toPgText(s.Element), toPgText(s.Description),
		toPgText(s.Era), toPgText(s.Period), toPgText(s.Epoch), toPgText(s.Age), toPgText(s.Formation),
		toPgText(s.Locality), toPgText(s.Country), toPgText(s.Region),
		toPgFloat8(s.Latitude), toPgFloat8(s.Longitude), toPgDate(s.DiscoveryDate), toPgText(s.Collector),
		toPgFloat8(s.Width), toPgFloat8(s.Height), toPgFloat8(s.Length), s.SizeUnit,
		toPgFloat8(s.Weight), s.WeightUnit,
		toPgDate(s.AcquisitionDate), toPgText(s.AcquisitionMethod), toPgText(s.AcquiredFrom), toPgText(s.Condition),
		toPgFloat8(s.PurchasePrice), toPgFloat8(s.EstimatedValue), s.Currency,
		nonNil(s.Tags), toPgText(s.Notes), toPgText(s.StorageLocation),
		s.IsFavorite, nonNil(s.ImageURLs), s.IsPublic, s.ShareURL, toPgTimestamptz(s.CreatedAt),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", &core.PersistenceError{
				Message: fmt.Sprintf("inventory id %q already exists", s.InventoryID),
				Err:     fmt.Errorf("%w: %s", core.ErrDuplicateInventoryID, pgErr.ConstraintName),
			}
		}
		return "", &core.PersistenceError{Message: fmt.Sprintf("save specimen: %v", err), Err: err}
	}
	return uuidToString(id), nil
}

// Specimen fetches one of the owner's records by id.
func (p *Postgres) Specimen(ctx context.Context, ownerID, id string) (*core.Specimen, error) {
	var (
		s                                          core.Specimen
		recID, importID                            pgtype.UUID
		genus, family, order, class, phylum, cname pgtype.Text
		inventory, element, description            pgtype.Text
		era, period, epoch, age, formation         pgtype.Text
		locality, country, region, collector       pgtype.Text
		method, from, condition                    pgtype.Text
		notes, storage                             pgtype.Text
		lat, lon, width, height, length, weight    pgtype.Float8
		price, value                               pgtype.Float8
		discovered, acquired                       pgtype.Date
	)

	err := p.pool.QueryRow(ctx, `
		SELECT id, owner_id, import_id,
			species, genus, family, taxon_order, taxon_class, phylum, common_name,
			inventory_id, element, description,
			era, period, epoch, age, formation,
			locality, country, region, latitude, longitude, discovery_date, collector,
			width, height, length, size_unit, weight, weight_unit,
			acquisition_date, acquisition_method, acquired_from, condition,
			purchase_price, estimated_value, currency,
			tags, notes, storage_location,
			is_favorite, image_urls, is_public, share_url, created_at
		FROM specimens WHERE owner_id = $1 AND id = $2`,
		ownerID, toPgUUID(id),
	).Scan(
		&recID, &s.OwnerID, &importID,
		&s.Species, &genus, &family, &order, &class, &phylum, &cname,
		&inventory, &element, &description,
		&era, &period, &epoch, &age, &formation,
		&locality, &country, &region, &lat, &lon, &discovered, &collector,
		&width, &height, &length, &s.SizeUnit, &weight, &s.WeightUnit,
		&acquired, &method, &from, &condition,
		&price, &value, &s.Currency,
		&s.Tags, &notes, &storage,
		&s.IsFavorite, &s.ImageURLs, &s.IsPublic, &s.ShareURL, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("specimen %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get specimen %s: %w", id, err)
	}

	s.ID, s.ImportID = uuidToString(recID), uuidToString(importID)
	s.Genus, s.Family, s.Order, s.Class = fromPgText(genus), fromPgText(family), fromPgText(order), fromPgText(class)
	s.Phylum, s.CommonName = fromPgText(phylum), fromPgText(cname)
	s.InventoryID, s.Element, s.Description = fromPgText(inventory), fromPgText(element), fromPgText(description)
	s.Era, s.Period, s.Epoch, s.Age = fromPgText(era), fromPgText(period), fromPgText(epoch), fromPgText(age)
	s.Formation = fromPgText(formation)
	s.Locality, s.Country, s.Region, s.Collector = fromPgText(locality), fromPgText(country), fromPgText(region), fromPgText(collector)
	s.Latitude, s.Longitude = fromPgFloat8(lat), fromPgFloat8(lon)
	s.DiscoveryDate, s.AcquisitionDate = fromPgDate(discovered), fromPgDate(acquired)
	s.Width, s.Height, s.Length, s.Weight = fromPgFloat8(width), fromPgFloat8(height), fromPgFloat8(length), fromPgFloat8(weight)
	s.AcquisitionMethod, s.AcquiredFrom, s.Condition = fromPgText(method), fromPgText(from), fromPgText(condition)
	s.PurchasePrice, s.EstimatedValue = fromPgFloat8(price), fromPgFloat8(value)
	s.Notes, s.StorageLocation = fromPgText(notes), fromPgText(storage)
	return &s, nil
}

// ============================================================================
// Import history
// ============================================================================

// RecordImport stores a finished import summary.
func (p *Postgres) RecordImport(ctx context.Context, sum core.ImportSummary) error {
	warnings, err := json.Marshal(sum.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	failed, err := json.Marshal(sum.FailedRows)
	if err != nil {
		return fmt.Errorf("marshal failed rows: %w", err)
	}
	rows, err := json.Marshal(sum.ImportedRows)
	if err != nil {
		return fmt.Errorf("marshal imported rows: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO import_history (
			import_id, owner_id, source_name,
			total_processed, success_count, failed_count, skipped_count,
			duration_ms, cancelled, warnings, failed_rows,
			imported_record_ids, imported_rows, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		toPgUUID(sum.ImportID), sum.OwnerID, sum.SourceName,
		sum.TotalProcessed, sum.SuccessCount, sum.FailedCount, sum.SkippedCount,
		sum.DurationMs, sum.Cancelled, warnings, failed,
		nonNil(sum.ImportedRecordIDs), rows, sum.StartedAt, sum.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("record import %s: %w", sum.ImportID, err)
	}
	return nil
}

const selectHistory = `
	SELECT import_id, owner_id, source_name,
		total_processed, success_count, failed_count, skipped_count,
		duration_ms, cancelled, warnings, failed_rows,
		imported_record_ids, imported_rows, started_at, completed_at
	FROM import_history`

// ListImports returns the owner's imports that were not rolled back, newest first.
func (p *Postgres) ListImports(ctx context.Context, ownerID string, limit int) ([]core.ImportSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx,
		selectHistory+` WHERE owner_id = $1 AND rolled_back_at IS NULL ORDER BY completed_at DESC LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var result []core.ImportSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sum)
	}
	return result, rows.Err()
}

// GetImport returns one import, or core.ErrImportNotFound.
func (p *Postgres) GetImport(ctx context.Context, ownerID, importID string) (*core.ImportSummary, error) {
	row := p.pool.QueryRow(ctx,
		selectHistory+` WHERE owner_id = $1 AND import_id = $2 AND rolled_back_at IS NULL`,
		ownerID, toPgUUID(importID),
	)
	sum, err := scanSummary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrImportNotFound, importID)
	}
	return sum, err
}

func scanSummary(row pgx.Row) (*core.ImportSummary, error) {
	var (
		sum                     core.ImportSummary
		id                      pgtype.UUID
		warnings, failed, rowIx []byte
	)
	err := row.Scan(
		&id, &sum.OwnerID, &sum.SourceName,
		&sum.TotalProcessed, &sum.SuccessCount, &sum.FailedCount, &sum.SkippedCount,
		&sum.DurationMs, &sum.Cancelled, &warnings, &failed,
		&sum.ImportedRecordIDs, &rowIx, &sum.StartedAt, &sum.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan import: %w", err)
	}

	sum.ImportID = uuidToString(id)
	if err := json.Unmarshal(warnings, &sum.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	if err := json.Unmarshal(failed, &sum.FailedRows); err != nil {
		return nil, fmt.Errorf("decode failed rows: %w", err)
	}
	if err := json.Unmarshal(rowIx, &sum.ImportedRows); err != nil {
		return nil, fmt.Errorf("decode imported rows: %w", err)
	}
	return &sum, nil
}

// DeleteImportRecords deletes the specimens created by an import and marks
// the history entry rolled back, in one transaction.
func (p *Postgres) DeleteImportRecords(ctx context.Context, ownerID, importID string) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op after commit

	tag, err := tx.Exec(ctx,
		`DELETE FROM specimens WHERE owner_id = $1 AND import_id = $2`,
		ownerID, toPgUUID(importID),
	)
	if err != nil {
		return 0, fmt.Errorf("delete specimens: %w", err)
	}

	marked, err := tx.Exec(ctx,
		`UPDATE import_history SET rolled_back_at = NOW()
		 WHERE owner_id = $1 AND import_id = $2 AND rolled_back_at IS NULL`,
		ownerID, toPgUUID(importID),
	)
	if err != nil {
		return 0, fmt.Errorf("mark rolled back: %w", err)
	}
	if marked.RowsAffected() == 0 {
		return 0, fmt.Errorf("%w: %s", core.ErrImportNotFound, importID)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit rollback: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PruneImports deletes history entries completed before cutoff.
func (p *Postgres) PruneImports(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM import_history WHERE completed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune import history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ============================================================================
// Mapping presets
// ============================================================================

// SavePreset stores a preset, replacing the owner's preset of the same name.
func (p *Postgres) SavePreset(ctx context.Context, preset core.MappingPreset) (core.MappingPreset, error) {
	if preset.ID == "" {
		preset.ID = newID()
	}
	columns, err := json.Marshal(preset.Columns)
	if err != nil {
		return core.MappingPreset{}, fmt.Errorf("marshal preset columns: %w", err)
	}

	var id pgtype.UUID
	err = p.pool.QueryRow(ctx, `
		INSERT INTO mapping_presets (id, owner_id, name, headers, columns)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, name)
		DO UPDATE SET headers = EXCLUDED.headers, columns = EXCLUDED.columns
		RETURNING id, created_at`,
		toPgUUID(preset.ID), preset.OwnerID, preset.Name, nonNil(preset.Headers), columns,
	).Scan(&id, &preset.CreatedAt)
	if err != nil {
		return core.MappingPreset{}, fmt.Errorf("save preset %q: %w", preset.Name, err)
	}

	preset.ID = uuidToString(id)
	return preset, nil
}

// ListPresets returns the owner's presets, newest first.
func (p *Postgres) ListPresets(ctx context.Context, ownerID string) ([]core.MappingPreset, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, owner_id, name, headers, columns, created_at
		FROM mapping_presets WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var result []core.MappingPreset
	for rows.Next() {
		var (
			preset  core.MappingPreset
			id      pgtype.UUID
			columns []byte
		)
		if err := rows.Scan(&id, &preset.OwnerID, &preset.Name, &preset.Headers, &columns, &preset.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		if err := json.Unmarshal(columns, &preset.Columns); err != nil {
			return nil, fmt.Errorf("decode preset columns: %w", err)
		}
		preset.ID = uuidToString(id)
		result = append(result, preset)
	}
	return result, rows.Err()
}

// nonNil turns a nil slice into an empty one for NOT NULL array columns.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
