package counter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Snapshot is a read-only copy of the tallies in configuration order.
type Snapshot struct {
	names  []string
	values []int
}

// Names returns the color names in order.
func (s Snapshot) Names() []string {
	return append([]string(nil), s.names...)
}

// Get returns the count for name and whether it is tracked.
func (s Snapshot) Get(name string) (int, bool) {
	for i, n := range s.names {
		if n == name {
			return s.values[i], true
		}
	}
	return 0, false
}

// Total sums every tally.
func (s Snapshot) Total() int {
	total := 0
	for _, v := range s.values {
		total += v
	}
	return total
}

// Map returns the tallies as a new map.
func (s Snapshot) Map() map[string]int {
	m := make(map[string]int, len(s.names))
	for i, n := range s.names {
		m[n] = s.values[i]
	}
	return m
}

// String formats the snapshot as "red=1 green=0".
func (s Snapshot) String() string {
	parts := make([]string, len(s.names))
	for i, n := range s.names {
		parts[i] = fmt.Sprintf("%s=%d", n, s.values[i])
	}
	return strings.Join(parts, " ")
}

// MarshalJSON encodes the snapshot as an ordered list of {color, count}.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type entry struct {
		Color string `json:"color"`
		Count int    `json:"count"`
	}
	entries := make([]entry, len(s.names))
	for i, n := range s.names {
		entries[i] = entry{Color: n, Count: s.values[i]}
	}
	return json.Marshal(entries)
}
