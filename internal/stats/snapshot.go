package stats

import "github.com/desertthunder/libstats/internal/models"

// SnapshotEntries converts the map for storage, keeping key order.
func (fm *FrequencyMap) SnapshotEntries() []models.SnapshotEntry {
	entries := make([]models.SnapshotEntry, 0, fm.Len())
	for _, e := range fm.Entries() {
		entries = append(entries, models.SnapshotEntry{Key: e.Key, Count: e.Count})
	}
	return entries
}

// FromSnapshot rebuilds the frequency map stored in s.
func FromSnapshot(s *models.Snapshot) *FrequencyMap {
	fm := &FrequencyMap{}
	for _, e := range s.Entries() {
		fm.Add(e.Key, e.Count)
	}
	return fm
}
