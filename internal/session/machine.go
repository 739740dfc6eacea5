package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/climatenet/climatebot/internal/classify"
	"github.com/climatenet/climatebot/internal/metrics"
	"github.com/climatenet/climatebot/internal/models"
	"github.com/climatenet/climatebot/internal/report"
)

// Quick-reply buttons the machine attaches to its prompts. The dispatcher
// matches inbound text against these.
const (
	AddMoreButton        = "➕ Add another device"
	StartCompareButton   = "🚀 Start comparing"
	CancelCompareButton  = "/Cancel_compare ❌"
	ChangeLocationButton = "/Change_location"
)

// DeviceDirectory is the read side of the device directory.
type DeviceDirectory interface {
	Locations() []string
	Devices(location string) []models.Device
	Lookup(name string) (models.Device, bool)
	HasLocation(name string) bool
	Empty() bool
}

// Fetcher retrieves the latest measurement for a device. A (nil, nil)
// result means the device has no data yet.
type Fetcher interface {
	FetchLatest(ctx context.Context, deviceID string) (*models.Measurement, error)
}

// Renderer turns an ordered set of devices and their measurements into a
// PNG comparison report.
type Renderer interface {
	Render(devices []models.Device, measurements []models.Measurement) ([]byte, error)
}

// Analytics receives fire-and-forget selection events.
type Analytics interface {
	RecordSelection(chatID int64, dev models.Device) error
}

// Machine drives the per-chat comparison workflow. Every operation returns
// the ordered presentation actions for the dispatch layer to execute.
// Events for one chat are expected to arrive serially.
type Machine struct {
	store     *Store
	dir       DeviceDirectory
	fetcher   Fetcher
	renderer  Renderer
	analytics Analytics
	menuFor   func(currentDevice string) []string
}

func NewMachine(store *Store, dir DeviceDirectory, fetcher Fetcher, renderer Renderer, analytics Analytics, menuFor func(currentDevice string) []string) *Machine {
	return &Machine{
		store:     store,
		dir:       dir,
		fetcher:   fetcher,
		renderer:  renderer,
		analytics: analytics,
		menuFor:   menuFor,
	}
}

// Store exposes the session store, mainly for tests and the dispatcher.
func (m *Machine) Store() *Store {
	return m.store
}

// Menu builds the main menu keyboard for a chat. The chat's current
// device, when one is selected, appears on the refresh button.
func (m *Machine) Menu(chatID int64) []string {
	cur := ""
	if s, ok := m.store.Peek(chatID); ok && s.Current != nil {
		cur = s.Current.Name
	}
	return m.menuFor(cur)
}

// StartCompare begins a comparison, resetting any previous selection.
func (m *Machine) StartCompare(chatID int64) []Action {
	s := m.store.Get(chatID)
	if s.Rendering {
		return []Action{textAction("⚠️ A comparison is already being prepared. Please wait for it to finish.")}
	}
	if m.dir.Empty() {
		return []Action{textAction("⚠️ No locations are available right now. Please try again later.", m.Menu(chatID)...)}
	}

	s.Mode = ModeCollecting
	s.Selected = nil
	s.PendingLocation = ""
	return []Action{m.promptLocation(1)}
}

// PickLocation handles a location choice, either for the comparison slot
// being filled or for the single-device flow.
func (m *Machine) PickLocation(chatID int64, location string) []Action {
	if !m.dir.HasLocation(location) {
		return []Action{textAction("⚠️ Location not found. ❌")}
	}

	s := m.store.Get(chatID)
	if s.Mode == ModeCollecting {
		s.PendingLocation = location
		return []Action{m.promptDevice(location, len(s.Selected)+1)}
	}

	names := m.deviceNames(location)
	names = append(names, ChangeLocationButton)
	return []Action{textAction("Please choose a device: ✅", names...)}
}

// PickDevice handles a device choice. In a comparison it fills the current
// slot; otherwise it becomes the chat's current device and its latest
// measurement is sent right away.
func (m *Machine) PickDevice(ctx context.Context, chatID int64, name string) []Action {
	dev, ok := m.dir.Lookup(name)
	if !ok {
		return []Action{textAction("⚠️ Device not found. ❌")}
	}

	s := m.store.Get(chatID)
	if s.Mode == ModeCollecting {
		s.Selected = append(s.Selected, dev)
		s.PendingLocation = ""

		if !s.Ready() {
			return []Action{m.promptLocation(len(s.Selected) + 1)}
		}
		return []Action{m.promptReadyOrMore(len(s.Selected))}
	}

	s.Current = &dev
	if err := m.analytics.RecordSelection(chatID, dev); err != nil {
		log.Printf("machine: record selection: %v", err)
	}
	return m.sendCurrent(ctx, chatID, dev)
}

// AddMore reopens location collection for the next comparison slot.
func (m *Machine) AddMore(chatID int64) []Action {
	s := m.store.Get(chatID)
	if s.Mode != ModeCollecting || !s.Ready() {
		return []Action{textAction("⚠️ No comparison in progress. Start one with /Compare 🆚.", m.Menu(chatID)...)}
	}
	return []Action{m.promptLocation(len(s.Selected) + 1)}
}

// StartComparing fetches every selected device's latest measurement and
// renders the comparison image. Any fetch or render failure aborts the
// whole comparison with a single user-facing message. The comparison state
// is cleared on every exit path.
func (m *Machine) StartComparing(ctx context.Context, chatID int64) []Action {
	s := m.store.Get(chatID)
	if s.Mode != ModeCollecting {
		return []Action{textAction("⚠️ No comparison in progress. Start one with /Compare 🆚.", m.Menu(chatID)...)}
	}
	if !s.Ready() {
		// Rejected without touching the selection: the chat stays in
		// collecting state and can keep picking devices.
		metrics.ComparisonsTotal.WithLabelValues("rejected").Inc()
		return []Action{textAction(fmt.Sprintf("⚠️ Select at least 2 devices to compare (%d selected).", len(s.Selected)))}
	}
	if s.Rendering {
		return []Action{textAction("⚠️ A comparison is already being prepared. Please wait for it to finish.")}
	}

	s.Rendering = true
	defer s.ResetCompare()

	devices := append([]models.Device(nil), s.Selected...)
	measurements := make([]models.Measurement, 0, len(devices))
	for _, dev := range devices {
		meas, err := m.fetcher.FetchLatest(ctx, dev.ID)
		if err != nil {
			log.Printf("machine: fetch %s (%s): %v", dev.Name, dev.ID, err)
		}
		if err != nil || meas == nil {
			metrics.ComparisonsTotal.WithLabelValues("fetch_failed").Inc()
			return []Action{textAction(
				fmt.Sprintf("⚠️ Error retrieving data from %s. Please try again.", dev.Name),
				m.Menu(chatID)...)}
		}
		measurements = append(measurements, *meas)
	}

	png, err := m.renderer.Render(devices, measurements)
	if err != nil {
		log.Printf("machine: render comparison for chat %d: %v", chatID, err)
		metrics.ComparisonsTotal.WithLabelValues("render_failed").Inc()
		if errors.Is(err, report.ErrTemplateMissing) || errors.Is(err, report.ErrAssetMissing) {
			return []Action{textAction("⚠️ Comparison reports are temporarily unavailable. Please contact an administrator.", m.Menu(chatID)...)}
		}
		return []Action{textAction("⚠️ Error generating comparison image. Please try again.", m.Menu(chatID)...)}
	}

	metrics.ComparisonsTotal.WithLabelValues("success").Inc()
	return []Action{
		photoAction(png),
		textAction("Comparison table sent as image above.", m.Menu(chatID)...),
	}
}

// Cancel aborts any comparison in progress and returns to the main menu.
func (m *Machine) Cancel(chatID int64) []Action {
	s := m.store.Get(chatID)
	s.ResetCompare()
	return []Action{textAction("Back to the main menu.", m.Menu(chatID)...)}
}

// RefreshCurrent re-fetches the chat's current device.
func (m *Machine) RefreshCurrent(ctx context.Context, chatID int64) []Action {
	s := m.store.Get(chatID)
	if s.Current == nil {
		return []Action{textAction("⚠️ Please select a device first using /Change_device 🔄.", m.Menu(chatID)...)}
	}
	return m.sendCurrent(ctx, chatID, *s.Current)
}

// ClearCurrent drops the chat's current device selection.
func (m *Machine) ClearCurrent(chatID int64) {
	s := m.store.Get(chatID)
	s.Current = nil
}

func (m *Machine) sendCurrent(ctx context.Context, chatID int64, dev models.Device) []Action {
	meas, err := m.fetcher.FetchLatest(ctx, dev.ID)
	if err != nil {
		log.Printf("machine: fetch %s (%s): %v", dev.Name, dev.ID, err)
	}
	if err != nil || meas == nil {
		return []Action{textAction("⚠️ Error retrieving data. Please try again later.", m.Menu(chatID)...)}
	}
	return []Action{
		htmlAction(formatMeasurement(dev, *meas), m.Menu(chatID)...),
		textAction("For the next measurement, select /Current 📍 every quarter of the hour. 🕒"),
	}
}

func (m *Machine) promptLocation(slot int) Action {
	options := append(m.dir.Locations(), CancelCompareButton)
	return textAction(fmt.Sprintf("Please choose a location for Device %d 📍:", slot), options...)
}

func (m *Machine) promptDevice(location string, slot int) Action {
	options := append(m.deviceNames(location), CancelCompareButton)
	return textAction(fmt.Sprintf("Please choose Device %d: ✅", slot), options...)
}

func (m *Machine) promptReadyOrMore(count int) Action {
	return textAction(
		fmt.Sprintf("%d devices selected. Add another one or start comparing:", count),
		AddMoreButton, StartCompareButton, CancelCompareButton)
}

func (m *Machine) deviceNames(location string) []string {
	devices := m.dir.Devices(location)
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}
	return names
}

// formatMeasurement renders a single device reading as a styled message.
func formatMeasurement(dev models.Device, m models.Measurement) string {
	return fmt.Sprintf(`<b>%s — %s</b>
🕒 %s

🌡 Temperature: %s
💧 Humidity: %s
🌀 Pressure: %s
☀️ UV: %s (%s)
🔆 Light: %s
🌫 PM1.0: %s (%s)
🌫 PM2.5: %s (%s)
🌫 PM10: %s (%s)
💨 Wind: %s at %s
🌧 Rain: %s
🌤 Condition: %s`,
		dev.Location, dev.Name,
		m.Timestamp,
		metric(m.Temperature, "°C", true),
		metric(m.Humidity, "%", false),
		metric(m.Pressure, " hPa", false),
		metric(m.UV, "", false), classify.UVBand(m.UV),
		metric(m.Lux, " lux", false),
		metric(m.PM1, " µg/m³", false), classify.PMBand(m.PM1, classify.PM1),
		metric(m.PM25, " µg/m³", false), classify.PMBand(m.PM25, classify.PM25),
		metric(m.PM10, " µg/m³", false), classify.PMBand(m.PM10, classify.PM10),
		metric(m.WindDirection, "°", false), metric(m.WindSpeed, " m/s", false),
		metric(m.Rain, " mm", false),
		classify.WeatherCondition(m))
}

func metric(v *float64, unit string, rounded bool) string {
	if v == nil || math.IsNaN(*v) {
		return "N/A"
	}
	if rounded {
		return fmt.Sprintf("%.0f%s", math.Round(*v), unit)
	}
	return fmt.Sprintf("%g%s", *v, unit)
}
