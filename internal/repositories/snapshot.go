package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/shared"
)

var _ models.Repository[*models.Snapshot] = (*SnapshotRepository)(nil)

const snapshotColumns = "id, sequence, policy, record_count, entries, created_at, updated_at, deleted_at"

// SnapshotRepository implements models.Repository[*models.Snapshot].
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create inserts a new snapshot into the database with generated ID and sequence
func (r *SnapshotRepository) Create(snapshot *models.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	entries, err := json.Marshal(snapshot.Entries())
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	sequence, err := NextSequence(r.db, "snapshots")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO snapshots (id, sequence, policy, record_count, entries, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		snapshot.Policy(),
		snapshot.RecordCount(),
		string(entries),
		snapshot.CreatedAt(),
		snapshot.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	snapshot.SetID(id)
	snapshot.SetSequence(sequence)
	return nil
}

// Get retrieves a snapshot by ID, excluding soft-deleted snapshots
func (r *SnapshotRepository) Get(id string) (*models.Snapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM snapshots WHERE id = ? AND deleted_at IS NULL"

	snapshot, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSnapshotNotFound, id)
	}
	return snapshot, err
}

// GetBySequence retrieves a snapshot by its sequence number
func (r *SnapshotRepository) GetBySequence(sequence int) (*models.Snapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM snapshots WHERE sequence = ? AND deleted_at IS NULL"

	snapshot, err := r.scan(r.db.QueryRow(query, sequence))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: #%d", shared.ErrSnapshotNotFound, sequence)
	}
	return snapshot, err
}

// Delete soft-deletes a snapshot by ID
func (r *SnapshotRepository) Delete(id string) error {
	query := `
		UPDATE snapshots
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSnapshotNotFound, id)
	}

	return nil
}

// List retrieves all snapshots matching the given criteria, excluding soft-deleted snapshots.
//
// Supported criteria: "policy" (string) and "limit" (int, most recent first when set).
func (r *SnapshotRepository) List(criteria map[string]any) ([]*models.Snapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM snapshots WHERE deleted_at IS NULL"
	args := []any{}

	if policy, ok := criteria["policy"].(string); ok && policy != "" {
		query += " AND policy = ?"
		args = append(args, policy)
	}

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query = "SELECT * FROM (" + query + " ORDER BY sequence DESC LIMIT ?) ORDER BY sequence ASC"
		args = append(args, limit)
	} else {
		query += " ORDER BY sequence ASC"
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		snapshot, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return snapshots, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row into a [models.Snapshot]; sql.ErrNoRows is returned unwrapped.
func (r *SnapshotRepository) scan(row scanner) (*models.Snapshot, error) {
	var (
		id          string
		sequence    int
		policy      string
		recordCount int
		rawEntries  string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &policy, &recordCount, &rawEntries, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	var entries []models.SnapshotEntry
	if err := json.Unmarshal([]byte(rawEntries), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries of snapshot %s: %w", id, err)
	}

	snapshot := models.NewSnapshot(sequence, policy, recordCount, entries)
	snapshot.SetID(id)
	snapshot.SetCreatedAt(createdAt)
	snapshot.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		snapshot.SetDeletedAt(&deletedAt.Time)
	}

	return snapshot, nil
}
