package classify

import (
	"testing"

	"github.com/climatenet/climatebot/internal/models"
)

func TestUVBand(t *testing.T) {
	tests := []struct {
		name string
		uv   *float64
		want string
	}{
		{"missing reading", nil, AbsentLabel},
		{"zero is low", models.Float(0), "Low"},
		{"below low boundary", models.Float(2.9), "Low"},
		{"low boundary", models.Float(3), "Moderate"},
		{"moderate", models.Float(5), "Moderate"},
		{"between old revisions' bands", models.Float(5.5), "Moderate"},
		{"high", models.Float(6), "High"},
		{"high upper", models.Float(7.9), "High"},
		{"very high", models.Float(8), "Very High"},
		{"very high boundary", models.Float(10), "Very High"},
		{"extreme", models.Float(10.1), "Extreme"},
		{"negative still low", models.Float(-1), "Low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UVBand(tt.uv)
			if got != tt.want {
				t.Errorf("UVBand(%v) = %q, want %q", tt.uv, got, tt.want)
			}
		})
	}
}

func TestUVBandContiguous(t *testing.T) {
	// Sweep the whole plausible range; every value must land in exactly
	// one of the five bands.
	valid := map[string]bool{
		"Low": true, "Moderate": true, "High": true, "Very High": true, "Extreme": true,
	}
	for v := -2.0; v <= 20.0; v += 0.1 {
		got := UVBand(models.Float(v))
		if !valid[got] {
			t.Fatalf("UVBand(%v) = %q, not a known band", v, got)
		}
	}
}

func TestPMBand(t *testing.T) {
	tests := []struct {
		name      string
		value     *float64
		pollutant Pollutant
		want      string
	}{
		{"missing reading", nil, PM25, AbsentLabel},
		{"pm2.5 good", models.Float(10), PM25, "Good"},
		{"pm2.5 boundary good", models.Float(12), PM25, "Good"},
		{"pm2.5 moderate", models.Float(20), PM25, "Moderate"},
		{"pm2.5 sensitive groups", models.Float(50), PM25, "Unhealthy for Sensitive Groups"},
		{"pm2.5 unhealthy after 56", models.Float(60), PM25, "Unhealthy"},
		{"pm2.5 very unhealthy", models.Float(200), PM25, "Very Unhealthy"},
		{"pm2.5 above all thresholds", models.Float(300), PM25, "Hazardous"},
		{"pm1 good", models.Float(45), PM1, "Good"},
		{"pm1 hazardous", models.Float(301), PM1, "Hazardous"},
		{"pm10 moderate", models.Float(100), PM10, "Moderate"},
		{"pm10 hazardous", models.Float(505), PM10, "Hazardous"},
		{"unknown pollutant", models.Float(10), Pollutant("SO2"), AbsentLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PMBand(tt.value, tt.pollutant)
			if got != tt.want {
				t.Errorf("PMBand(%v, %s) = %q, want %q", tt.value, tt.pollutant, got, tt.want)
			}
		})
	}
}

func TestPMBandMonotonic(t *testing.T) {
	rank := map[string]int{
		"Good":                           0,
		"Moderate":                       1,
		"Unhealthy for Sensitive Groups": 2,
		"Unhealthy":                      3,
		"Very Unhealthy":                 4,
		"Hazardous":                      5,
	}
	for _, p := range []Pollutant{PM1, PM25, PM10} {
		prev := -1
		for v := 0.0; v <= 600.0; v += 1.0 {
			label := PMBand(models.Float(v), p)
			r, ok := rank[label]
			if !ok {
				t.Fatalf("PMBand(%v, %s) = %q, not a known label", v, p, label)
			}
			if r < prev {
				t.Fatalf("PMBand(%s) severity decreased at %v: %q", p, v, label)
			}
			prev = r
		}
		if prev != rank["Hazardous"] {
			t.Errorf("PMBand(%s) never reached the top band", p)
		}
	}
}

func TestWeatherCondition(t *testing.T) {
	tests := []struct {
		name string
		m    models.Measurement
		want string
	}{
		{
			name: "possibly snowing",
			m:    models.Measurement{Temperature: models.Float(0.5), Humidity: models.Float(90)},
			want: "Possibly Snowing",
		},
		{
			name: "snow rule beats fog rule",
			m: models.Measurement{
				Temperature: models.Float(-2),
				Humidity:    models.Float(95),
				Lux:         models.Float(50),
				PM25:        models.Float(60),
			},
			want: "Possibly Snowing",
		},
		{
			name: "foggy",
			m: models.Measurement{
				Temperature: models.Float(5),
				Lux:         models.Float(50),
				Humidity:    models.Float(95),
				PM25:        models.Float(50),
			},
			want: "Foggy",
		},
		{
			name: "cloudy",
			m:    models.Measurement{Lux: models.Float(200), UV: models.Float(1)},
			want: "Cloudy",
		},
		{
			name: "zero lux is a signal, not a gap",
			m:    models.Measurement{Lux: models.Float(0), UV: models.Float(0)},
			want: "Cloudy",
		},
		{
			name: "sunny",
			m:    models.Measurement{Lux: models.Float(10000), UV: models.Float(6)},
			want: "Sunny",
		},
		{
			name: "no readings at all",
			m:    models.Measurement{},
			want: ConditionFallback,
		},
		{
			name: "missing humidity blocks the snow rule",
			m:    models.Measurement{Temperature: models.Float(-5)},
			want: ConditionFallback,
		},
		{
			name: "bright but low uv matches nothing",
			m:    models.Measurement{Lux: models.Float(1000), UV: models.Float(2.5)},
			want: ConditionFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeatherCondition(tt.m)
			if got != tt.want {
				t.Errorf("WeatherCondition() = %q, want %q", got, tt.want)
			}
			// Pure function: a second call must agree with the first.
			if again := WeatherCondition(tt.m); again != got {
				t.Errorf("WeatherCondition() not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestSeverityClass(t *testing.T) {
	tests := []struct {
		label string
		want  Severity
	}{
		{"Good", SeverityGood},
		{"Moderate", SeverityModerate},
		{"Unhealthy for Sensitive Groups", SeverityUnhealthy},
		{"Unhealthy", SeverityUnhealthy},
		{"High", SeverityUnhealthy},
		{"Very High", SeverityDangerous},
		{"Very Unhealthy", SeverityDangerous},
		{"Extreme", SeverityDangerous},
		{"Hazardous", SeverityDangerous},
		{"Low", SeverityNone},
		{AbsentLabel, SeverityNone},
		{"", SeverityNone},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got := SeverityClass(tt.label)
			if got != tt.want {
				t.Errorf("SeverityClass(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}
