// Package samples holds the most recently read value of every quantity.
package samples

import (
	exporter "github.com/a-tho/sunexporter/internal"
	"github.com/a-tho/sunexporter/internal/catalog"
)

// Store keeps the last raw value read for each quantity. It is owned by the
// polling loop and is not safe for concurrent use.
type Store struct {
	values map[catalog.Quantity]int
}

// New returns a store holding no samples; Get reports the catalog defaults
// until a value is set.
func New() *Store {
	return &Store{values: make(map[catalog.Quantity]int, len(catalog.ReadOrder))}
}

// Get returns the last value set for q, or q's default.
func (s *Store) Get(q catalog.Quantity) int {
	if v, ok := s.values[q]; ok {
		return v
	}
	return catalog.MustLookup(q).Default
}

// Set overwrites the value of q. Raw register values are stored as is.
func (s *Store) Set(q catalog.Quantity, v int) {
	s.values[q] = v
}

// Snapshot returns every quantity's current value in publish order.
func (s *Store) Snapshot() []exporter.Sample {
	out := make([]exporter.Sample, 0, len(catalog.PublishOrder))
	for _, q := range catalog.PublishOrder {
		e := catalog.MustLookup(q)
		out = append(out, exporter.Sample{Name: e.Name, Metric: e.Metric, Value: s.Get(q)})
	}
	return out
}
