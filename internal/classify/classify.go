// Package classify turns raw sensor readings into human-readable categories.
// Every function is pure and total: any input, including a missing reading,
// maps to exactly one label.
package classify

import (
	"strings"

	"github.com/climatenet/climatebot/internal/models"
)

// AbsentLabel is used when a reading is missing entirely.
const AbsentLabel = "N/A"

// UVBand buckets a UV index into the standard exposure bands. Bands are
// contiguous over the real line.
func UVBand(uv *float64) string {
	if uv == nil {
		return AbsentLabel
	}
	switch v := *uv; {
	case v < 3:
		return "Low"
	case v < 6:
		return "Moderate"
	case v < 8:
		return "High"
	case v <= 10:
		return "Very High"
	default:
		return "Extreme"
	}
}

// Pollutant selects the particulate-matter threshold ladder.
type Pollutant string

const (
	PM1  Pollutant = "PM1.0"
	PM25 Pollutant = "PM2.5"
	PM10 Pollutant = "PM10"
)

var pmThresholds = map[Pollutant][5]float64{
	PM1:  {50, 100, 150, 200, 300},
	PM25: {12, 36, 56, 151, 251},
	PM10: {54, 154, 254, 354, 504},
}

var pmLabels = [6]string{
	"Good",
	"Moderate",
	"Unhealthy for Sensitive Groups",
	"Unhealthy",
	"Very Unhealthy",
	"Hazardous",
}

// PMBand buckets a particulate concentration into six severity labels.
// A value above every threshold falls in the open-ended top band.
func PMBand(value *float64, pollutant Pollutant) string {
	if value == nil {
		return AbsentLabel
	}
	thresholds, ok := pmThresholds[pollutant]
	if !ok {
		return AbsentLabel
	}
	for i, limit := range thresholds {
		if *value <= limit {
			return pmLabels[i]
		}
	}
	return pmLabels[len(pmLabels)-1]
}

// Weather-condition rule thresholds. The rules are evaluated top to bottom
// and the first match wins.
const (
	snowTempBelow     = 1
	snowHumidityAbove = 85
	fogLuxBelow       = 100
	fogHumidityAbove  = 90
	fogPM25Above      = 40
	cloudLuxBelow     = 250
	cloudUVBelow      = 2
	sunLuxAbove       = 5
	sunUVAbove        = 3
)

// ConditionFallback is returned when no rule matches.
const ConditionFallback = "Unknown"

// WeatherCondition derives a coarse condition label from a measurement.
// Missing readings never match a rule; a legitimate zero does.
func WeatherCondition(m models.Measurement) string {
	switch {
	case present(m.Temperature, m.Humidity) &&
		*m.Temperature < snowTempBelow && *m.Humidity > snowHumidityAbove:
		return "Possibly Snowing"
	case present(m.Lux, m.Humidity, m.PM25) &&
		*m.Lux < fogLuxBelow && *m.Humidity > fogHumidityAbove && *m.PM25 > fogPM25Above:
		return "Foggy"
	case present(m.Lux, m.UV) && *m.Lux < cloudLuxBelow && *m.UV < cloudUVBelow:
		return "Cloudy"
	case present(m.Lux, m.UV) && *m.Lux > sunLuxAbove && *m.UV > sunUVAbove:
		return "Sunny"
	default:
		return ConditionFallback
	}
}

func present(vals ...*float64) bool {
	for _, v := range vals {
		if v == nil {
			return false
		}
	}
	return true
}

// Severity is a coarse styling class for a derived label.
type Severity string

const (
	SeverityGood      Severity = "good"
	SeverityModerate  Severity = "moderate"
	SeverityUnhealthy Severity = "unhealthy"
	SeverityDangerous Severity = "dangerous"
	SeverityNone      Severity = "none"
)

// SeverityClass maps a band label to a styling severity by keyword. The
// dangerous keywords are checked first so that "Very High" is not shadowed
// by the plain "High" match.
func SeverityClass(label string) Severity {
	switch {
	case strings.Contains(label, "Very High"),
		strings.Contains(label, "Extreme"),
		strings.Contains(label, "Hazardous"),
		strings.Contains(label, "Very Unhealthy"):
		return SeverityDangerous
	case strings.Contains(label, "Unhealthy"), strings.Contains(label, "High"):
		return SeverityUnhealthy
	case strings.Contains(label, "Moderate"):
		return SeverityModerate
	case strings.Contains(label, "Good"):
		return SeverityGood
	default:
		return SeverityNone
	}
}
