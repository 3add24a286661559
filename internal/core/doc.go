// Package core provides the business logic for fossil collection CSV imports.
//
// This package contains all domain logic independent of any UI, transport or
// database. It is used by the web handlers, the CLI and tests without
// modification.
//
// # Architecture
//
// An import moves through four stages:
//
//   - Catalog: the fixed set of importable fields ([Fields], [Field]), each
//     with a category, a kind and header synonyms.
//   - Mapping: [GenerateMapping] scores every header against the catalog and
//     assigns it to its best field; [UpdateMapping] applies manual edits.
//   - Drafts: [BuildDrafts] turns every row into a [SpecimenDraft] carrying
//     parsed text, blocking errors and warnings.
//   - Import: [Importer.ImportSelected] converts importable drafts into
//     [Specimen] records, checks inventory ids for duplicates and saves them
//     through a [SpecimenStore], streaming [ImportProgress] snapshots.
//
// [Service] wraps these stages in sessions for hosts that keep state between
// requests, bounds parallel runs with an [ImportLimiter] and records every
// [ImportSummary] in a [HistoryStore].
//
// # Progress
//
// Progress is an unbuffered channel. The importer moves to the next row only
// after the consumer has received the previous snapshot:
//
//	run := importer.ImportSelected(ctx, drafts, ownerID, "fossils.csv")
//	for p := range run.Progress() {
//	    fmt.Printf("%d/%d\n", p.Processed(), p.TotalSpecimens)
//	}
//	summary, err := run.Summary()
//
// # Error Handling
//
// Row failures never stop a run; they are recorded as [ImportRowError]
// values in the summary. Technical errors are mapped to user-facing messages
// with [MapError]; see error_messages.go for the code reference.
package core
