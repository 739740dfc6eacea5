package directory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/climatenet/climatebot/internal/models"
)

type fakeLister struct {
	devices []models.Device
	err     error
	calls   int
}

func (f *fakeLister) ListDevices(context.Context) ([]models.Device, error) {
	f.calls++
	return f.devices, f.err
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	lister := &fakeLister{devices: []models.Device{
		{Name: "B", ID: "2", Location: "Yerevan"},
		{Name: "A", ID: "1", Location: "Yerevan"},
		{Name: "C", ID: "3", Location: "Unknown"},
	}}
	dir := New(lister)

	if !dir.Empty() {
		t.Fatal("fresh directory should be empty")
	}
	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if got, want := dir.Locations(), []string{"Unknown", "Yerevan"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Locations() = %v, want %v", got, want)
	}

	devs := dir.Devices("Yerevan")
	if len(devs) != 2 || devs[0].Name != "B" || devs[1].Name != "A" {
		t.Errorf("Devices should keep directory order, got %v", devs)
	}

	dev, ok := dir.Lookup("C")
	if !ok || dev.ID != "3" {
		t.Errorf("Lookup(C) = %v, %v", dev, ok)
	}
	if _, ok := dir.Lookup("missing"); ok {
		t.Error("Lookup of unknown name should fail")
	}

	if !dir.HasLocation("Yerevan") || dir.HasLocation("Atlantis") {
		t.Error("HasLocation gave wrong answers")
	}
	if dir.Empty() {
		t.Error("directory with devices reported empty")
	}
	if dir.RefreshedAt().IsZero() {
		t.Error("RefreshedAt not set after successful refresh")
	}
}

func TestRefreshFailureKeepsOldSnapshot(t *testing.T) {
	lister := &fakeLister{devices: []models.Device{
		{Name: "A", ID: "1", Location: "Yerevan"},
	}}
	dir := New(lister)
	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	refreshed := dir.RefreshedAt()

	lister.err = errors.New("upstream down")
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // no retries, fail fast
	if err := dir.Refresh(ctx); err == nil {
		t.Fatal("expected refresh error")
	}

	if dir.Empty() {
		t.Error("old snapshot lost after failed refresh")
	}
	if _, ok := dir.Lookup("A"); !ok {
		t.Error("old device gone after failed refresh")
	}
	if !dir.RefreshedAt().Equal(refreshed) {
		t.Error("RefreshedAt moved on a failed refresh")
	}
}

func TestRefreshRetriesTransientFailure(t *testing.T) {
	lister := &failOnceLister{devices: []models.Device{
		{Name: "A", ID: "1", Location: "Yerevan"},
	}}
	dir := New(lister)

	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh should survive one transient failure: %v", err)
	}
	if lister.calls < 2 {
		t.Errorf("expected a retry, got %d calls", lister.calls)
	}
}

type failOnceLister struct {
	devices []models.Device
	calls   int
}

func (f *failOnceLister) ListDevices(context.Context) ([]models.Device, error) {
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("transient")
	}
	return f.devices, nil
}
