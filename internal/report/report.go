// Package report assembles the side-by-side device comparison artifact:
// one column per device, one row per metric, each cell carrying the raw
// value, its classifier label and a severity styling class.
package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/climatenet/climatebot/internal/classify"
	"github.com/climatenet/climatebot/internal/models"
)

var (
	// ErrTemplateMissing means the report template could not be loaded or
	// executed. Fatal for the render attempt; an operator has to fix it.
	ErrTemplateMissing = errors.New("report template missing")
	// ErrAssetMissing means a styling or font asset required for a
	// self-contained artifact is unavailable.
	ErrAssetMissing = errors.New("report asset missing")
	// ErrRenderFailed means rasterization of the assembled markup failed.
	ErrRenderFailed = errors.New("report rasterization failed")
)

// Cell is one metric value for one device.
type Cell struct {
	Value string
	Label string
	Class classify.Severity
}

// Column is one device's worth of cells, aligned with View.Rows.
type Column struct {
	Device  string
	Warning bool
	Cells   []Cell
}

// View is the fully classified tabular form of a comparison.
type View struct {
	Rows    []string
	Columns []Column
}

// rowNames fixes the metric order of the report.
var rowNames = []string{
	"Timestamp",
	"UV Index",
	"Light",
	"Temperature",
	"Humidity",
	"Pressure",
	"PM1.0",
	"PM2.5",
	"PM10",
	"Wind Speed",
	"Rain",
	"Wind Direction",
	"Weather Condition",
}

// BuildView classifies measurements into a comparison table. The devices
// and measurements slices must be the same length and in the same order.
// Devices listed in issues get an inline warning badge in their column.
func BuildView(devices []models.Device, measurements []models.Measurement, issues map[string]bool) (View, error) {
	if len(devices) != len(measurements) {
		return View{}, fmt.Errorf("mismatched inputs: %d devices, %d measurements", len(devices), len(measurements))
	}

	view := View{Rows: rowNames}
	for i, dev := range devices {
		m := measurements[i]

		uvBand := classify.UVBand(m.UV)
		condition := classify.WeatherCondition(m)

		col := Column{
			Device:  dev.Name,
			Warning: issues[dev.Name],
			Cells: []Cell{
				{Value: orNA(m.Timestamp)},
				{Value: value(m.UV, ""), Label: uvBand, Class: classify.SeverityClass(uvBand)},
				{Value: value(m.Lux, " lux")},
				{Value: rounded(m.Temperature, "°C")},
				{Value: value(m.Humidity, "%")},
				{Value: value(m.Pressure, " hPa")},
				pmCell(m.PM1, classify.PM1),
				pmCell(m.PM25, classify.PM25),
				pmCell(m.PM10, classify.PM10),
				{Value: value(m.WindSpeed, " m/s")},
				{Value: value(m.Rain, " mm")},
				{Value: value(m.WindDirection, "°")},
				{Value: condition},
			},
		}
		view.Columns = append(view.Columns, col)
	}
	return view, nil
}

func pmCell(v *float64, p classify.Pollutant) Cell {
	label := classify.PMBand(v, p)
	return Cell{
		Value: value(v, " µg/m³"),
		Label: label,
		Class: classify.SeverityClass(label),
	}
}

func value(v *float64, unit string) string {
	if v == nil || math.IsNaN(*v) {
		return "N/A"
	}
	return fmt.Sprintf("%g%s", *v, unit)
}

func rounded(v *float64, unit string) string {
	if v == nil || math.IsNaN(*v) {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%s", math.Round(*v), unit)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
