package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HistoryStore records finished imports and removes their records on rollback.
type HistoryStore interface {
	RecordImport(ctx context.Context, summary ImportSummary) error
	ListImports(ctx context.Context, ownerID string, limit int) ([]ImportSummary, error)
	// GetImport returns ErrImportNotFound for unknown ids.
	GetImport(ctx context.Context, ownerID, importID string) (*ImportSummary, error)
	// DeleteImportRecords deletes the specimens created by an import and
	// marks the history entry rolled back. Returns the number of records deleted.
	DeleteImportRecords(ctx context.Context, ownerID, importID string) (int64, error)
}

// PresetStore persists mapping presets per owner.
type PresetStore interface {
	SavePreset(ctx context.Context, preset MappingPreset) (MappingPreset, error)
	ListPresets(ctx context.Context, ownerID string) ([]MappingPreset, error)
}

// Stores groups the persistence collaborators of a Service.
// History and Presets are optional.
type Stores struct {
	Specimens SpecimenStore
	History   HistoryStore
	Presets   PresetStore
}

// ServiceConfig tunes import sessions.
type ServiceConfig struct {
	BatchSize     int
	MaxConcurrent int
	MaxWait       time.Duration
	ImportTimeout time.Duration
	SessionTTL    time.Duration
	DraftWorkers  int
}

// DefaultImportTimeout bounds a single import run.
const DefaultImportTimeout = 10 * time.Minute

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = time.Hour

// Service manages import sessions: mapping, drafts, runs and history.
// It is safe for concurrent use.
type Service struct {
	stores   Stores
	importer *Importer
	limiter  *ImportLimiter
	cfg      ServiceConfig
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	ID         string
	OwnerID    string
	CreatedAt  time.Time
	mu         sync.Mutex
	touched    time.Time
	config     MappingConfiguration
	drafts     []SpecimenDraft
	presets    []PresetMatch
	current    *activeImport
	lastResult *ImportSummary
}

type activeImport struct {
	ID     string
	Cancel context.CancelFunc
	Done   chan struct{}

	ListenerMu sync.Mutex
	Progress   ImportProgress
	Listeners  []chan ImportProgress

	Summary *ImportSummary
	Err     error
}

// NewService creates a Service. stores.Specimens is required.
func NewService(stores Stores, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = DefaultImportTimeout
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	return &Service{
		stores:   stores,
		importer: NewImporter(stores.Specimens, WithBatchSize(cfg.BatchSize), WithLogger(logger)),
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Limiter exposes the import limiter for monitoring and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// SessionView is the externally visible state of a session.
type SessionView struct {
	ID                string           `json:"id"`
	OwnerID           string           `json:"ownerId"`
	SourceName        string           `json:"sourceName"`
	Delimiter         string           `json:"delimiter"`
	Headers           []string         `json:"headers"`
	RowCount          int              `json:"rowCount"`
	Mappings          []FieldMapping   `json:"mappings"`
	AllRequiredMapped bool             `json:"allRequiredMapped"`
	MissingRequired   []FieldKey       `json:"missingRequired"`
	Conflicts         []ColumnConflict `json:"conflicts"`
	UnmappedHeaders   []string         `json:"unmappedHeaders"`
	PresetMatches     []PresetMatch    `json:"presetMatches"`
	Drafts            *DraftStats      `json:"drafts,omitempty"`
	ImportID          string           `json:"importId,omitempty"`
}

func (sess *session) view() *SessionView {
	v := &SessionView{
		ID:                sess.ID,
		OwnerID:           sess.OwnerID,
		SourceName:        sess.config.Source.SourceName,
		Delimiter:         sess.config.Source.Delimiter,
		Headers:           sess.config.Source.Headers,
		RowCount:          sess.config.Source.RowCount,
		Mappings:          sess.config.Mappings,
		AllRequiredMapped: sess.config.AllRequiredMapped(),
		MissingRequired:   sess.config.MissingRequired(),
		Conflicts:         sess.config.ColumnConflicts(),
		UnmappedHeaders:   sess.config.UnmappedHeaders(),
		PresetMatches:     sess.presets,
	}
	if sess.drafts != nil {
		stats := SummarizeDrafts(sess.drafts)
		v.Drafts = &stats
	}
	if sess.current != nil {
		v.ImportID = sess.current.ID
	}
	return v
}

// OpenSession starts a session for a parsed source and generates its mapping.
func (s *Service) OpenSession(ctx context.Context, ownerID string, source TabularResult) (*SessionView, error) {
	if len(source.Headers) == 0 {
		return nil, &SourceReadError{Source: source.SourceName, Err: ErrEmptySource}
	}

	sess := &session{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
		touched:   time.Now(),
		config:    GenerateMapping(source),
	}

	if s.stores.Presets != nil {
		presets, err := s.stores.Presets.ListPresets(ctx, ownerID)
		if err != nil {
			// Presets are a convenience; the session works without them
			s.logger.Warn("list presets failed", "owner_id", ownerID, "error", err)
		} else {
			sess.presets = MatchPresets(source.Headers, presets)
		}
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.scheduleExpiry(sess.ID, s.cfg.SessionTTL)

	s.logger.Info("import session opened",
		"session_id", sess.ID,
		"owner_id", ownerID,
		"source", source.SourceName,
		"rows", source.RowCount,
		"mapped_fields", countMapped(sess.config),
	)

	return sess.view(), nil
}

func countMapped(c MappingConfiguration) int {
	n := 0
	for _, m := range c.Mappings {
		if m.Mapped() {
			n++
		}
	}
	return n
}

// getSession returns a session owned by ownerID ("" matches any owner).
func (s *Service) getSession(sessionID, ownerID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok || (ownerID != "" && sess.OwnerID != ownerID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// Session returns the current state of a session.
func (s *Service) Session(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touched = time.Now()
	return sess.view(), nil
}

// Mapping returns a session's mapping configuration.
func (s *Service) Mapping(ctx context.Context, sessionID string) (MappingConfiguration, error) {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return MappingConfiguration{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.config, nil
}

// UpdateSessionMapping replaces one field's columns. Built drafts are discarded.
func (s *Service) UpdateSessionMapping(ctx context.Context, sessionID string, field FieldKey, columns []string) (*SessionView, error) {
	if _, ok := Field(field); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.current != nil && !sess.current.finished() {
		return nil, ErrImportInProgress
	}

	sess.config = UpdateMapping(sess.config, field, columns)
	sess.drafts = nil
	sess.touched = time.Now()

	if conflicts := sess.config.ColumnConflicts(); len(conflicts) > 0 {
		s.logger.Debug("mapping has column conflicts", "session_id", sessionID, "conflicts", len(conflicts))
	}
	return sess.view(), nil
}

// ApplySessionPreset applies one of the session's matching presets.
func (s *Service) ApplySessionPreset(ctx context.Context, sessionID, presetID string) (*SessionView, error) {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, pm := range sess.presets {
		if pm.Preset.ID == presetID {
			sess.config = ApplyPreset(sess.config, pm.Preset)
			sess.drafts = nil
			sess.touched = time.Now()
			return sess.view(), nil
		}
	}
	return nil, fmt.Errorf("preset %s does not match this file", presetID)
}

// SaveSessionPreset stores the session's current mapping as a named preset.
func (s *Service) SaveSessionPreset(ctx context.Context, sessionID, name string) (*MappingPreset, error) {
	if s.stores.Presets == nil {
		return nil, errors.New("presets are not available")
	}
	if name == "" {
		return nil, errors.New("preset name is required")
	}
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	preset := PresetFromMapping(name, sess.config)
	preset.OwnerID = sess.OwnerID
	sess.mu.Unlock()

	saved, err := s.stores.Presets.SavePreset(ctx, preset)
	if err != nil {
		return nil, fmt.Errorf("save preset: %w", err)
	}
	return &saved, nil
}

// Presets lists the owner's saved mapping presets, newest first.
func (s *Service) Presets(ctx context.Context, ownerID string) ([]MappingPreset, error) {
	if s.stores.Presets == nil {
		return nil, nil
	}
	return s.stores.Presets.ListPresets(ctx, ownerID)
}

// BuildSessionDrafts validates every row against the current mapping.
func (s *Service) BuildSessionDrafts(ctx context.Context, sessionID string) ([]SpecimenDraft, DraftStats, error) {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return nil, DraftStats{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.current != nil && !sess.current.finished() {
		return nil, DraftStats{}, ErrImportInProgress
	}

	sess.drafts = BuildDraftsParallel(sess.config, s.cfg.DraftWorkers)
	sess.touched = time.Now()
	return sess.drafts, SummarizeDrafts(sess.drafts), nil
}

// Drafts returns the session's drafts, building them if needed.
func (s *Service) Drafts(ctx context.Context, sessionID string) ([]SpecimenDraft, error) {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.drafts == nil {
		sess.drafts = BuildDraftsParallel(sess.config, s.cfg.DraftWorkers)
	}
	return sess.drafts, nil
}

// SetDraftSelected toggles whether a row will be imported.
func (s *Service) SetDraftSelected(ctx context.Context, sessionID string, rowIndex int, selected bool) (DraftStats, error) {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return DraftStats{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.current != nil && !sess.current.finished() {
		return DraftStats{}, ErrImportInProgress
	}
	if sess.drafts == nil {
		sess.drafts = BuildDraftsParallel(sess.config, s.cfg.DraftWorkers)
	}
	if rowIndex < 0 || rowIndex >= len(sess.drafts) {
		return DraftStats{}, fmt.Errorf("%w: %d", ErrUnknownRow, rowIndex)
	}

	sess.drafts = SetSelected(sess.drafts, rowIndex, selected)
	sess.touched = time.Now()
	return SummarizeDrafts(sess.drafts), nil
}

// ReselectFailedRows selects only the rows that failed in the last run.
func (s *Service) ReselectFailedRows(ctx context.Context, sessionID string) (DraftStats, error) {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return DraftStats{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.lastResult == nil || sess.drafts == nil {
		return DraftStats{}, ErrImportNotFound
	}
	if sess.lastResult.Cancelled {
		sess.drafts = ReselectRemaining(sess.drafts, sess.lastResult)
	} else {
		sess.drafts = ReselectFailed(sess.drafts, sess.lastResult)
	}
	return SummarizeDrafts(sess.drafts), nil
}

// StartImport runs the session's importable drafts in the background and
// returns the import id. Waits for a limiter slot; returns ErrTooManyImports
// if none frees up in time.
func (s *Service) StartImport(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	if sess.current != nil && !sess.current.finished() {
		sess.mu.Unlock()
		return "", ErrImportInProgress
	}
	if sess.drafts == nil {
		sess.drafts = BuildDraftsParallel(sess.config, s.cfg.DraftWorkers)
	}
	drafts := sess.drafts
	total := CountImportable(drafts)
	if total == 0 {
		sess.mu.Unlock()
		return "", ErrNoImportableRows
	}

	// The slot is reserved before the lock is released so a concurrent start
	// sees an import in progress while this one waits for the limiter.
	importCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ImportTimeout)
	importID := uuid.New().String()
	imp := &activeImport{
		ID:       importID,
		Cancel:   cancel,
		Done:     make(chan struct{}),
		Progress: ImportProgress{ImportID: importID, TotalSpecimens: total},
	}
	previous := sess.current
	sess.current = imp
	sess.touched = time.Now()
	sess.mu.Unlock()

	if err := s.limiter.Acquire(ctx); err != nil {
		cancel()
		sess.mu.Lock()
		if sess.current == imp {
			sess.current = previous
		}
		sess.mu.Unlock()
		imp.finish(nil, err)
		return "", err
	}

	run := s.importer.ImportSelectedWithID(importCtx, importID, drafts, sess.OwnerID, sess.config.Source.SourceName)

	go func() {
		defer s.limiter.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in import", "import_id", imp.ID, "panic", r)
				imp.finish(nil, fmt.Errorf("internal error: %v", r))
			}
		}()

		for p := range run.Progress() {
			imp.notify(p)
		}
		summary, runErr := run.Summary()

		if summary != nil && s.stores.History != nil {
			recCtx, recCancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.stores.History.RecordImport(recCtx, *summary); err != nil {
				s.logger.Error("record import history failed", "import_id", imp.ID, "error", err)
			}
			recCancel()
		}

		sess.mu.Lock()
		sess.lastResult = summary
		sess.mu.Unlock()

		imp.finish(summary, runErr)
	}()

	return imp.ID, nil
}

// currentImport returns the session's latest import.
func (s *Service) currentImport(ctx context.Context, sessionID string) (*activeImport, error) {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.current == nil {
		return nil, ErrImportNotFound
	}
	return sess.current, nil
}

// SubscribeProgress returns a channel receiving progress for the session's
// import. The latest snapshot is sent first; the channel is closed when the
// import ends. Slow subscribers may miss intermediate snapshots but always
// receive the last one.
func (s *Service) SubscribeProgress(ctx context.Context, sessionID string) (<-chan ImportProgress, error) {
	imp, err := s.currentImport(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ch := make(chan ImportProgress, 10)

	imp.ListenerMu.Lock()
	defer imp.ListenerMu.Unlock()

	ch <- imp.Progress
	if imp.finished() {
		close(ch)
		return ch, nil
	}
	imp.Listeners = append(imp.Listeners, ch)
	return ch, nil
}

// ImportProgress returns the latest snapshot without blocking.
func (s *Service) ImportProgress(ctx context.Context, sessionID string) (ImportProgress, error) {
	imp, err := s.currentImport(ctx, sessionID)
	if err != nil {
		return ImportProgress{}, err
	}
	imp.ListenerMu.Lock()
	defer imp.ListenerMu.Unlock()
	return imp.Progress, nil
}

// CancelImport stops the session's running import.
func (s *Service) CancelImport(ctx context.Context, sessionID string) error {
	imp, err := s.currentImport(ctx, sessionID)
	if err != nil {
		return err
	}
	imp.Cancel()
	return nil
}

// ImportSummary waits for the session's import to end and returns its summary.
// A cancelled import returns its partial summary with ErrImportCancelled.
func (s *Service) ImportSummary(ctx context.Context, sessionID string) (*ImportSummary, error) {
	imp, err := s.currentImport(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	select {
	case <-imp.Done:
		return imp.Summary, imp.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ImportHistory lists the owner's recent imports, newest first.
func (s *Service) ImportHistory(ctx context.Context, ownerID string, limit int) ([]ImportSummary, error) {
	if s.stores.History == nil {
		return nil, nil
	}
	return s.stores.History.ListImports(ctx, ownerID, limit)
}

// RollbackImport deletes every record created by an import.
func (s *Service) RollbackImport(ctx context.Context, ownerID, importID string) (int64, error) {
	if s.stores.History == nil {
		return 0, ErrImportNotFound
	}
	if _, err := s.stores.History.GetImport(ctx, ownerID, importID); err != nil {
		return 0, err
	}

	deleted, err := s.stores.History.DeleteImportRecords(ctx, ownerID, importID)
	if err != nil {
		return 0, fmt.Errorf("rollback import %s: %w", importID, err)
	}

	s.logger.Info("import rolled back", "import_id", importID, "owner_id", ownerID, "deleted", deleted)
	return deleted, nil
}

// CloseSession cancels any running import and forgets the session.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	sess, err := s.getSession(sessionID, OwnerIDFromContext(ctx))
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.current != nil {
		sess.current.Cancel()
	}
	sess.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown cancels running imports and waits for them to stop.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, sess := range s.sessions {
		sess.mu.Lock()
		if sess.current != nil {
			sess.current.Cancel()
		}
		sess.mu.Unlock()
	}
	s.mu.RUnlock()

	return s.limiter.WaitForDrain(ctx)
}

// scheduleExpiry removes a session once it has been idle for ttl.
func (s *Service) scheduleExpiry(sessionID string, ttl time.Duration) {
	time.AfterFunc(ttl, func() {
		s.mu.Lock()
		sess, ok := s.sessions[sessionID]
		s.mu.Unlock()
		if !ok {
			return
		}

		sess.mu.Lock()
		idle := time.Since(sess.touched)
		running := sess.current != nil && !sess.current.finished()
		sess.mu.Unlock()

		if running || idle < ttl {
			s.scheduleExpiry(sessionID, ttl-idle+time.Second)
			return
		}

		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		s.logger.Debug("import session expired", "session_id", sessionID)
	})
}

// notify records a snapshot and forwards it to listeners.
func (imp *activeImport) notify(p ImportProgress) {
	imp.ListenerMu.Lock()
	defer imp.ListenerMu.Unlock()

	imp.Progress = p
	for _, ch := range imp.Listeners {
		select {
		case ch <- p:
			continue
		default:
		}
		// Full buffer: drop the oldest snapshot so the newest, and in
		// particular the terminal one, is always queued.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- p:
		default:
		}
	}
}

// finish stores the outcome, closes listeners and releases waiters.
func (imp *activeImport) finish(summary *ImportSummary, err error) {
	imp.ListenerMu.Lock()
	defer imp.ListenerMu.Unlock()

	select {
	case <-imp.Done:
		return
	default:
	}

	imp.Summary = summary
	imp.Err = err
	for _, ch := range imp.Listeners {
		close(ch)
	}
	imp.Listeners = nil
	close(imp.Done)
}

func (imp *activeImport) finished() bool {
	select {
	case <-imp.Done:
		return true
	default:
		return false
	}
}
