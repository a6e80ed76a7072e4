package metrics

// Component identifies a monitored hardware component.
type Component string

const (
	ComponentCPU         Component = "cpu"
	ComponentGPU         Component = "gpu"
	ComponentMotherboard Component = "motherboard"
	ComponentDisk        Component = "disk"
)

// Components lists every monitored component in display order.
var Components = []Component{ComponentCPU, ComponentGPU, ComponentMotherboard, ComponentDisk}

// Provenance tags where a temperature value came from.
type Provenance string

const (
	ProvenanceSensor    Provenance = "sensor"
	ProvenanceEstimated Provenance = "estimated"
)

// TemperatureReading is one component reading in degrees Celsius.
// A component with no obtainable reading is simply absent from the map,
// never reported as zero.
type TemperatureReading struct {
	Component Component  `json:"component"`
	Celsius   float64    `json:"celsius"`
	Source    Provenance `json:"source"`
}

// Readings maps components to their current reading.
type Readings map[Component]TemperatureReading

// Max returns the hottest reading, or false when the map is empty.
func (r Readings) Max() (float64, bool) {
	var max float64
	found := false
	for _, reading := range r {
		if !found || reading.Celsius > max {
			max = reading.Celsius
			found = true
		}
	}

	return max, found
}

// WarningLevel grades the thermal state of the host.
type WarningLevel int

const (
	WarningUnknown WarningLevel = iota
	WarningNormal
	WarningModerate
	WarningHigh
	WarningCritical
)

func (w WarningLevel) String() string {
	switch w {
	case WarningNormal:
		return "normal"
	case WarningModerate:
		return "moderate"
	case WarningHigh:
		return "high"
	case WarningCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// WarningForTemperature maps a maximum component temperature to a warning
// level. Band edges are inclusive on the lower bound: 65.0 is already
// moderate, 75.0 high, and critical starts strictly above 85.
func WarningForTemperature(max float64) WarningLevel {
	switch {
	case max > 85.0:
		return WarningCritical
	case max >= 75.0:
		return WarningHigh
	case max >= 65.0:
		return WarningModerate
	default:
		return WarningNormal
	}
}

// Warning recomputes the warning level from a reading map.
func (r Readings) Warning() WarningLevel {
	max, ok := r.Max()
	if !ok {
		return WarningUnknown
	}

	return WarningForTemperature(max)
}
