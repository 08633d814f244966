package telemetry

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	exporter "github.com/a-tho/sunexporter/internal"
	"github.com/a-tho/sunexporter/internal/catalog"
)

// poll reads every quantity once. A read failing with exporter.ErrNoSocket
// ends the cycle early without an error; samples set before it are kept.
// Any other failure is returned.
func (o *Observer) poll(ctx context.Context) error {
	log.Info().Msg("Read registers")

	for _, q := range catalog.ReadOrder {
		e := catalog.MustLookup(q)

		regs, err := o.reader.ReadHoldingRegisters(ctx, e.Address, e.Count)
		if err == nil && len(regs) == 0 {
			err = errors.Newf("empty response for register %d", e.Address)
		}
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrapf(err, "read %s", e.Name)
			}
			if errors.Is(err, exporter.ErrNoSocket) {
				log.Error().Err(err).Str("quantity", e.Name).Msg("No socket available, skipping the rest of the cycle")
				return nil
			}
			log.Error().Err(err).Str("quantity", e.Name).Msg("Failed to read register")
			return errors.Wrapf(err, "read %s", e.Name)
		}

		o.samples.Set(q, regs[0])
		logSample(q, e, regs[0])
	}

	log.Info().Msg("Registers retrieved")
	return nil
}

func logSample(q catalog.Quantity, e catalog.Entry, v int) {
	ev := log.Info().Str("quantity", e.Name).Int("raw", v)
	if q == catalog.InverterState {
		ev = ev.Str("state", catalog.StateName(v))
	}
	ev.Msg(e.Name + " : " + DisplayValue(e, v))
}
