package telemetry

import (
	"math"
	"strconv"

	"github.com/a-tho/sunexporter/internal/catalog"
)

// DisplayValue renders a raw value with the entry's unit hint for logs. A
// scaled value that cannot be represented falls back to the raw value.
func DisplayValue(e catalog.Entry, v int) string {
	s := strconv.Itoa(v)
	if e.Scale != 0 {
		scaled := float64(v) / e.Scale
		if !math.IsNaN(scaled) && !math.IsInf(scaled, 0) {
			s = strconv.FormatFloat(scaled, 'f', -1, 64)
		}
	}
	if e.Unit != "" {
		s += " " + e.Unit
	}
	return s
}
