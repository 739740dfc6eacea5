package climate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL)
	c.client = srv.Client()
	return c
}

func TestListDevices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/device_inner/list/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`[
			{"name": "A", "generated_id": "1", "parent_name": "Yerevan"},
			{"name": "B", "generated_id": "2", "parent_name": "Yerevan"},
			{"name": "C", "generated_id": "3", "parent_name": ""}
		]`))
	})

	devices, err := c.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}

	if devices[0].Name != "A" || devices[0].ID != "1" || devices[0].Location != "Yerevan" {
		t.Errorf("unexpected first device: %+v", devices[0])
	}
	if devices[2].Location != "Unknown" {
		t.Errorf("missing parent should map to Unknown, got %q", devices[2].Location)
	}
}

func TestListDevicesUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	if _, err := c.ListDevices(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestFetchLatest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/device_inner/42/latest/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`[{
			"time": "2025-04-01T12:15:00",
			"uv": 4.5,
			"temperature": 21.3,
			"humidity": 40,
			"speed": 3.2,
			"direction": 180,
			"rain": 0
		}]`))
	})

	m, err := c.FetchLatest(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if m == nil {
		t.Fatal("got nil measurement")
	}

	if m.Timestamp != "2025-04-01 12:15:00" {
		t.Errorf("timestamp separator not normalized: %q", m.Timestamp)
	}
	if m.WindSpeed == nil || *m.WindSpeed != 3.2 {
		t.Errorf("speed not mapped to wind speed: %v", m.WindSpeed)
	}
	if m.WindDirection == nil || *m.WindDirection != 180 {
		t.Errorf("direction not mapped to wind direction: %v", m.WindDirection)
	}
	if m.Rain == nil || *m.Rain != 0 {
		t.Errorf("zero rain is a reading, not an absence: %v", m.Rain)
	}
	if m.Pressure != nil {
		t.Errorf("absent pressure should stay nil, got %v", *m.Pressure)
	}
}

func TestFetchLatestNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	m, err := c.FetchLatest(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if m != nil {
		t.Fatalf("empty reading list should yield nil measurement, got %+v", m)
	}
}

func TestFetchLatestUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	if _, err := c.FetchLatest(context.Background(), "missing"); err == nil {
		t.Fatal("expected error on 404")
	}
}
