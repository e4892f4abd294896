// Package repositories implements SQLite persistence for saved histograms.
//
// [SnapshotRepository] implements models.Repository[*models.Snapshot] with soft deletes via a deleted_at timestamp;
// deleted rows are excluded from queries.
//
// Sequence numbers provide stable, human-readable ordering (e.g. snapshot #3) independent of UUIDs and creation
// timestamps. The [NextSequence] function atomically increments per-table sequence counters in dedicated
// sequence tables.
//
// Only aggregated counts are stored: tokens and fetched records never reach the database.
package repositories
