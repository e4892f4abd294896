package models

import (
	"fmt"
	"time"
)

// SnapshotEntry is one bar of a saved histogram.
type SnapshotEntry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Snapshot is a histogram computed from the saved-tracks collection and stored for later viewing.
type Snapshot struct {
	id          string
	sequence    int
	policy      string
	recordCount int
	entries     []SnapshotEntry
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

var _ Model = (*Snapshot)(nil)

// NewSnapshot creates a snapshot for the given key policy; entries keep their order.
func NewSnapshot(sequence int, policy string, recordCount int, entries []SnapshotEntry) *Snapshot {
	now := time.Now().UTC()
	return &Snapshot{
		sequence:    sequence,
		policy:      policy,
		recordCount: recordCount,
		entries:     entries,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (s *Snapshot) ID() string               { return s.id }
func (s *Snapshot) Sequence() int            { return s.sequence }
func (s *Snapshot) Policy() string           { return s.policy }
func (s *Snapshot) RecordCount() int         { return s.recordCount }
func (s *Snapshot) Entries() []SnapshotEntry { return s.entries }
func (s *Snapshot) CreatedAt() time.Time     { return s.createdAt }
func (s *Snapshot) UpdatedAt() time.Time     { return s.updatedAt }
func (s *Snapshot) DeletedAt() *time.Time    { return s.deletedAt }

func (s *Snapshot) SetID(id string)           { s.id = id }
func (s *Snapshot) SetSequence(seq int)       { s.sequence = seq }
func (s *Snapshot) SetCreatedAt(t time.Time)  { s.createdAt = t }
func (s *Snapshot) SetUpdatedAt(t time.Time)  { s.updatedAt = t }
func (s *Snapshot) SetDeletedAt(t *time.Time) { s.deletedAt = t }
func (s *Snapshot) IsDeleted() bool           { return s.deletedAt != nil }

// Total sums the counts of all entries.
func (s *Snapshot) Total() int {
	total := 0
	for _, e := range s.entries {
		total += e.Count
	}
	return total
}

// Validate checks required fields.
func (s *Snapshot) Validate() error {
	if s.policy == "" {
		return fmt.Errorf("policy is required")
	}
	if s.recordCount < 0 {
		return fmt.Errorf("record count cannot be negative")
	}
	for _, e := range s.entries {
		if e.Key == "" {
			return fmt.Errorf("entry key is required")
		}
		if e.Count < 0 {
			return fmt.Errorf("entry %q has negative count", e.Key)
		}
	}
	return nil
}
