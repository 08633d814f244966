// Package telemetry implements sampling the inverter and publishing the
// samples as gauges.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	exporter "github.com/a-tho/sunexporter/internal"
	"github.com/a-tho/sunexporter/internal/samples"
)

type Observer struct {
	reader       exporter.RegisterReader
	pollInterval time.Duration

	samples   *samples.Store
	publisher *Publisher

	// optional, nil when samples are not mirrored anywhere
	mirror exporter.SampleMirror
}

func NewObserver(
	reader exporter.RegisterReader,
	reg prometheus.Registerer,
	mirror exporter.SampleMirror,
	pollInterval time.Duration,
) *Observer {
	return &Observer{
		reader:       reader,
		pollInterval: pollInterval,
		samples:      samples.New(),
		publisher:    NewPublisher(reg),
		mirror:       mirror,
	}
}

// Observe runs cycles until ctx is done or a read fails with a non transient
// error, which is returned.
func (o *Observer) Observe(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := o.cycle(ctx); err != nil {
			return err
		}

		timer := time.NewTimer(o.pollInterval)
		select {
		case <-timer.C:
			continue
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (o *Observer) cycle(ctx context.Context) error {
	if err := o.poll(ctx); err != nil {
		return err
	}
	if err := o.publisher.Publish(o.samples); err != nil {
		return err
	}

	if o.mirror != nil {
		// stale mirror is not worth stopping the exporter for
		if err := o.mirror.Save(ctx, o.samples.Snapshot()); err != nil {
			log.Error().Err(err).Msg("Failed to mirror samples")
		}
	}
	return nil
}
