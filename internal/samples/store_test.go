package samples

import (
	"testing"

	"github.com/stretchr/testify/assert"

	exporter "github.com/a-tho/sunexporter/internal"
	"github.com/a-tho/sunexporter/internal/catalog"
)

func TestStoreDefaults(t *testing.T) {
	s := New()

	for _, q := range catalog.ReadOrder {
		want := -1
		switch q {
		case catalog.InverterState:
			want = 2
		case catalog.GridConnected:
			want = 1
		}
		assert.Equal(t, want, s.Get(q), q.String())
	}
}

func TestStoreSet(t *testing.T) {
	tests := []struct {
		name string
		q    catalog.Quantity
		v    int
	}{
		{name: "set value", q: catalog.LoadPower, v: 120},
		{name: "reset value", q: catalog.LoadPower, v: 130},
		{name: "negative raw value", q: catalog.GridPower, v: -300},
		{name: "raw temperature", q: catalog.InverterTemp, v: 2350},
		{name: "state overrides default", q: catalog.InverterState, v: 0},
	}

	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Set(tt.q, tt.v)
			assert.Equal(t, tt.v, s.Get(tt.q))
		})
	}

	// untouched quantities keep their defaults
	assert.Equal(t, -1, s.Get(catalog.SolarPV1))
	assert.Equal(t, 1, s.Get(catalog.GridConnected))
}

func TestStoreSnapshot(t *testing.T) {
	s := New()
	s.Set(catalog.BatterySOC, 80)

	got := s.Snapshot()
	assert.Len(t, got, 8)
	assert.Equal(t, exporter.Sample{Name: "LoadPower", Metric: "SUN_5K_Load_Power", Value: -1}, got[0])
	assert.Equal(t, exporter.Sample{Name: "BatterySOC", Metric: "SUN_5K_Battery_SOC", Value: 80}, got[3])
	assert.Equal(t, exporter.Sample{Name: "InverterState", Metric: "SUN_5K_State", Value: 2}, got[5])
}
