package directory

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/climatenet/climatebot/internal/models"
)

// Lister fetches the upstream device directory.
type Lister interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
}

// Directory is a refreshable snapshot of the device directory: devices
// grouped by location plus a name-to-device index. A failed refresh keeps
// the previous snapshot intact, so callers only ever see a consistent view.
type Directory struct {
	lister Lister

	mu          sync.RWMutex
	byLocation  map[string][]models.Device
	byName      map[string]models.Device
	refreshedAt time.Time
}

func New(lister Lister) *Directory {
	return &Directory{
		lister:     lister,
		byLocation: map[string][]models.Device{},
		byName:     map[string]models.Device{},
	}
}

// Refresh fetches a fresh directory snapshot, retrying transient failures
// with bounded exponential backoff. On error the old snapshot survives.
func (d *Directory) Refresh(ctx context.Context) error {
	var devices []models.Device
	operation := func() error {
		var err error
		devices, err = d.lister.ListDevices(ctx)
		if err != nil {
			log.Printf("directory: refresh attempt failed: %v", err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return err
	}

	byLocation := map[string][]models.Device{}
	byName := map[string]models.Device{}
	for _, dev := range devices {
		byLocation[dev.Location] = append(byLocation[dev.Location], dev)
		byName[dev.Name] = dev
	}

	d.mu.Lock()
	d.byLocation = byLocation
	d.byName = byName
	d.refreshedAt = time.Now()
	d.mu.Unlock()

	log.Printf("directory: refreshed, %d devices in %d locations", len(byName), len(byLocation))
	return nil
}

// Locations returns all location names, sorted.
func (d *Directory) Locations() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.byLocation))
	for name := range d.byLocation {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Devices returns the devices of a location in directory order.
func (d *Directory) Devices(location string) []models.Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byLocation[location]
}

// Lookup resolves a device by name.
func (d *Directory) Lookup(name string) (models.Device, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dev, ok := d.byName[name]
	return dev, ok
}

// HasLocation reports whether the location exists in the current snapshot.
func (d *Directory) HasLocation(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byLocation[name]
	return ok
}

// Empty reports whether the directory has no devices. An empty directory
// means "directory unavailable", not "zero devices exist".
func (d *Directory) Empty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byName) == 0
}

// RefreshedAt returns the time of the last successful refresh, zero if none.
func (d *Directory) RefreshedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refreshedAt
}
