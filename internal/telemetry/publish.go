package telemetry

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/a-tho/sunexporter/internal/catalog"
	"github.com/a-tho/sunexporter/internal/samples"
)

// Publisher exposes samples as gauges. A gauge is created and registered the
// first time its metric is published and only updated afterwards.
type Publisher struct {
	reg    prometheus.Registerer
	gauges map[string]prometheus.Gauge
}

func NewPublisher(reg prometheus.Registerer) *Publisher {
	return &Publisher{
		reg:    reg,
		gauges: make(map[string]prometheus.Gauge),
	}
}

// Publish pushes the current value of every quantity in s.
func (p *Publisher) Publish(s *samples.Store) error {
	for _, q := range catalog.PublishOrder {
		e := catalog.MustLookup(q)
		if err := p.set(e, float64(s.Get(q))); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) set(e catalog.Entry, v float64) error {
	if g, ok := p.gauges[e.Metric]; ok {
		g.Set(v)
		log.Debug().Str("metric", e.Metric).Float64("value", v).Msg("Updating metric")
		return nil
	}

	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: e.Metric,
		Help: e.Help,
	})
	if err := p.reg.Register(g); err != nil {
		return errors.Wrapf(err, "register gauge %s", e.Metric)
	}
	g.Set(v)
	p.gauges[e.Metric] = g
	log.Info().Str("metric", e.Metric).Float64("value", v).Msg("Creating metric")

	return nil
}
