package exporter

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrNoSocket marks reads that failed because the connection to the device
// is not available. Such failures only end the current cycle.
var ErrNoSocket = errors.New("no socket available")

// A Sample is the last raw value read for a quantity, named by its metric.
type Sample struct {
	Name   string `json:"name" db:"name"`
	Metric string `json:"metric" db:"metric"`
	Value  int    `json:"value" db:"value"`
}

// A RegisterReader reads consecutive holding registers from a device.
type RegisterReader interface {
	ReadHoldingRegisters(ctx context.Context, address, count uint16) ([]int, error)
}

// A SampleMirror keeps a copy of the latest samples outside the process.
type SampleMirror interface {
	Save(ctx context.Context, samples []Sample) error
	Close() error
}

// An Observer is used to sample the device and publish the values.
type Observer interface {
	Observe(ctx context.Context) error
}
