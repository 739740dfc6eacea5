package models

// Device is a physical sensor station grouped under a named location.
type Device struct {
	Name     string
	ID       string
	Location string
}

// Measurement is one timestamped reading set from a device. Every metric is
// optional: a nil pointer means the sensor produced no value, which is not
// the same thing as a legitimate zero reading.
type Measurement struct {
	Timestamp     string
	UV            *float64
	Lux           *float64
	Temperature   *float64
	Pressure      *float64
	Humidity      *float64
	PM1           *float64
	PM25          *float64
	PM10          *float64
	WindSpeed     *float64
	Rain          *float64
	WindDirection *float64
}

// Float is a convenience for building optional measurement fields.
func Float(v float64) *float64 {
	return &v
}
