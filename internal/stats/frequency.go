package stats

import (
	"encoding/json"
	"slices"
)

// Entry is one key of a [FrequencyMap] with its count.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// FrequencyMap counts occurrences per key and remembers the order in which keys were first added.
//
// The zero value is ready to use.
type FrequencyMap struct {
	keys   []string
	counts map[string]int
}

// NewFrequencyMap creates a map pre-seeded with keys at zero, in the given order.
func NewFrequencyMap(keys ...string) *FrequencyMap {
	fm := &FrequencyMap{}
	for _, k := range keys {
		fm.Add(k, 0)
	}
	return fm
}

// FromEntries rebuilds a map from entries, e.g. a stored snapshot.
func FromEntries(entries []Entry) *FrequencyMap {
	fm := &FrequencyMap{}
	for _, e := range entries {
		fm.Add(e.Key, e.Count)
	}
	return fm
}

// Inc increments key by one.
func (fm *FrequencyMap) Inc(key string) {
	fm.Add(key, 1)
}

// Add increments key by n, appending key to the order if it is new.
func (fm *FrequencyMap) Add(key string, n int) {
	if fm.counts == nil {
		fm.counts = map[string]int{}
	}
	if _, ok := fm.counts[key]; !ok {
		fm.keys = append(fm.keys, key)
	}
	fm.counts[key] += n
}

// Get returns the count for key and whether key is present.
func (fm *FrequencyMap) Get(key string) (int, bool) {
	n, ok := fm.counts[key]
	return n, ok
}

// Keys returns the keys in insertion order.
func (fm *FrequencyMap) Keys() []string {
	return slices.Clone(fm.keys)
}

// Values returns the counts aligned with [FrequencyMap.Keys].
func (fm *FrequencyMap) Values() []int {
	values := make([]int, len(fm.keys))
	for i, k := range fm.keys {
		values[i] = fm.counts[k]
	}
	return values
}

// Entries returns key/count pairs in insertion order.
func (fm *FrequencyMap) Entries() []Entry {
	entries := make([]Entry, len(fm.keys))
	for i, k := range fm.keys {
		entries[i] = Entry{Key: k, Count: fm.counts[k]}
	}
	return entries
}

// Len returns the number of keys.
func (fm *FrequencyMap) Len() int {
	return len(fm.keys)
}

// Total returns the sum of all counts.
func (fm *FrequencyMap) Total() int {
	total := 0
	for _, n := range fm.counts {
		total += n
	}
	return total
}

// Max returns the largest count, or zero for an empty map.
func (fm *FrequencyMap) Max() int {
	highest := 0
	for _, n := range fm.counts {
		highest = max(highest, n)
	}
	return highest
}

// MarshalJSON encodes the map as an ordered array of {key, count}.
func (fm *FrequencyMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(fm.Entries())
}

// UnmarshalJSON decodes the array form written by [FrequencyMap.MarshalJSON].
func (fm *FrequencyMap) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*fm = *FromEntries(entries)
	return nil
}
