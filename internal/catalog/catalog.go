// Package catalog describes the inverter registers the exporter reads and the
// metrics they are published under.
package catalog

// Quantity is a logical value read from the inverter.
type Quantity int

const (
	LoadPower Quantity = iota
	GridPower
	SolarPV1
	BatterySOC
	InverterTemp
	InverterState
	GridConnected
	GridImport
)

// An Entry maps a quantity to its holding register and metric.
type Entry struct {
	Name    string
	Address uint16
	Count   uint16
	Metric  string
	Help    string
	Unit    string
	// Scale divides the raw value for display only; zero means unscaled.
	Scale   float64
	Default int
}

var entries = map[Quantity]Entry{
	LoadPower: {
		Name: "LoadPower", Address: 178, Count: 1, Metric: "SUN_5K_Load_Power",
		Help: "Load power in W", Unit: "Wh", Default: -1,
	},
	GridPower: {
		Name: "GridPower", Address: 169, Count: 1, Metric: "SUN_5K_Grid_Power",
		Help: "Grid power in W", Unit: "Wh", Default: -1,
	},
	SolarPV1: {
		Name: "SolarPV1", Address: 186, Count: 1, Metric: "SUN_5K_Solar_Power",
		Help: "PV1 input power in W", Unit: "Wh", Default: -1,
	},
	BatterySOC: {
		Name: "BatterySOC", Address: 184, Count: 1, Metric: "SUN_5K_Battery_SOC",
		Help: "Battery state of charge in %", Unit: "%", Default: -1,
	},
	InverterTemp: {
		Name: "InverterTemp", Address: 90, Count: 1, Metric: "SUN_5K_Temperature",
		Help: "Inverter temperature, raw register value", Unit: "°C", Scale: 100, Default: -1,
	},
	InverterState: {
		Name: "InverterState", Address: 59, Count: 1, Metric: "SUN_5K_State",
		Help: "Inverter running state (0 stand-by, 1 self-check, 2 normal, 3 warning, 4 fault)", Default: 2,
	},
	GridConnected: {
		Name: "GridConnected", Address: 194, Count: 1, Metric: "SUN_5K_Grid_Connected",
		Help: "Grid connection state (1 connected)", Default: 1,
	},
	GridImport: {
		Name: "GridImport", Address: 76, Count: 1, Metric: "SUN_5K_Grid_Import",
		Help: "Energy imported from the grid in Wh", Unit: "Wh", Default: -1,
	},
}

// ReadOrder is the order in which quantities are read during a cycle.
var ReadOrder = []Quantity{
	InverterState,
	LoadPower,
	GridPower,
	SolarPV1,
	BatterySOC,
	InverterTemp,
	GridConnected,
	GridImport,
}

// PublishOrder is the order in which gauges are published.
var PublishOrder = []Quantity{
	LoadPower,
	GridPower,
	SolarPV1,
	BatterySOC,
	InverterTemp,
	InverterState,
	GridConnected,
	GridImport,
}

// Lookup returns the catalog entry for q.
func Lookup(q Quantity) (Entry, bool) {
	e, ok := entries[q]
	return e, ok
}

// MustLookup is like Lookup but panics on an unknown quantity.
func MustLookup(q Quantity) Entry {
	e, ok := entries[q]
	if !ok {
		panic("catalog: unknown quantity " + q.String())
	}
	return e
}

func (q Quantity) String() string {
	if e, ok := entries[q]; ok {
		return e.Name
	}
	return "Quantity(?)"
}

// StateName describes an inverter state code.
func StateName(v int) string {
	switch v {
	case 0:
		return "Stand-by"
	case 1:
		return "Self-check"
	case 2:
		return "Normal"
	case 3:
		return "Warning"
	case 4:
		return "Fault"
	default:
		return "Error"
	}
}
