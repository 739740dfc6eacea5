package climate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/climatenet/climatebot/internal/httputil"
	"github.com/climatenet/climatebot/internal/metrics"
	"github.com/climatenet/climatebot/internal/models"
)

const DefaultBaseURL = "https://climatenet.am"

// Client fetches the device directory and latest per-device measurements
// from the upstream data provider.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httputil.NewClient(),
	}
}

type deviceEntry struct {
	Name        string `json:"name"`
	GeneratedID string `json:"generated_id"`
	ParentName  string `json:"parent_name"`
}

// ListDevices fetches the device directory. Devices without a parent name
// are grouped under "Unknown".
func (c *Client) ListDevices(ctx context.Context) ([]models.Device, error) {
	url := c.baseURL + "/device_inner/list/"

	body, err := c.get(ctx, url, "device_list")
	if err != nil {
		return nil, err
	}

	var entries []deviceEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal device list: %w", err)
	}

	devices := make([]models.Device, 0, len(entries))
	for _, e := range entries {
		location := e.ParentName
		if location == "" {
			location = "Unknown"
		}
		devices = append(devices, models.Device{
			Name:     e.Name,
			ID:       e.GeneratedID,
			Location: location,
		})
	}
	return devices, nil
}

type readingEntry struct {
	Time        string   `json:"time"`
	UV          *float64 `json:"uv"`
	Lux         *float64 `json:"lux"`
	Temperature *float64 `json:"temperature"`
	Pressure    *float64 `json:"pressure"`
	Humidity    *float64 `json:"humidity"`
	PM1         *float64 `json:"pm1"`
	PM25        *float64 `json:"pm2_5"`
	PM10        *float64 `json:"pm10"`
	Speed       *float64 `json:"speed"`
	Rain        *float64 `json:"rain"`
	Direction   *float64 `json:"direction"`
}

// FetchLatest returns the newest measurement for a device, or (nil, nil)
// when the provider has no data for it yet. No automatic retry: the caller
// decides whether a failure is worth surfacing to the user.
func (c *Client) FetchLatest(ctx context.Context, deviceID string) (*models.Measurement, error) {
	url := fmt.Sprintf("%s/device_inner/%s/latest/", c.baseURL, deviceID)

	body, err := c.get(ctx, url, "latest_measurement")
	if err != nil {
		return nil, err
	}

	var readings []readingEntry
	if err := json.Unmarshal(body, &readings); err != nil {
		return nil, fmt.Errorf("unmarshal readings: %w", err)
	}
	if len(readings) == 0 {
		return nil, nil
	}

	r := readings[0]
	return &models.Measurement{
		// The provider returns ISO 8601; the separator is normalized for display.
		Timestamp:     strings.Replace(r.Time, "T", " ", 1),
		UV:            r.UV,
		Lux:           r.Lux,
		Temperature:   r.Temperature,
		Pressure:      r.Pressure,
		Humidity:      r.Humidity,
		PM1:           r.PM1,
		PM25:          r.PM25,
		PM10:          r.PM10,
		WindSpeed:     r.Speed,
		Rain:          r.Rain,
		WindDirection: r.Direction,
	}, nil
}

func (c *Client) get(ctx context.Context, url, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ProviderAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.ProviderAPICallsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch %s: status %d: %s", endpoint, resp.StatusCode, string(b))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
