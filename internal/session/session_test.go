package session

import (
	"sync"
	"testing"

	"github.com/climatenet/climatebot/internal/models"
)

func TestStoreGetCreates(t *testing.T) {
	st := NewStore()

	s := st.Get(1)
	if s == nil {
		t.Fatal("Get returned nil")
	}
	if s.Mode != ModeInactive {
		t.Errorf("Mode = %q, want inactive", s.Mode)
	}

	if again := st.Get(1); again != s {
		t.Error("Get returned a different session for the same chat")
	}
}

func TestStoreChatsAreIndependent(t *testing.T) {
	st := NewStore()

	a := st.Get(1)
	b := st.Get(2)
	a.Mode = ModeCollecting
	a.Selected = []models.Device{{Name: "A"}}

	if b.Mode != ModeInactive || len(b.Selected) != 0 {
		t.Error("mutating one chat's session affected another")
	}
}

func TestStoreClearRemovesWholeSession(t *testing.T) {
	st := NewStore()

	s := st.Get(1)
	s.Mode = ModeCollecting
	s.Current = &models.Device{Name: "A"}

	st.Clear(1)

	if _, ok := st.Peek(1); ok {
		t.Fatal("session still present after Clear")
	}
	fresh := st.Get(1)
	if fresh.Mode != ModeInactive || fresh.Current != nil {
		t.Error("Clear left partial state behind")
	}
}

func TestResetCompareKeepsCurrent(t *testing.T) {
	dev := models.Device{Name: "A", ID: "1"}
	s := &Session{
		Mode:            ModeCollecting,
		Selected:        []models.Device{dev, dev},
		PendingLocation: "Yerevan",
		Rendering:       true,
		Current:         &dev,
	}

	s.ResetCompare()

	if s.Mode != ModeInactive || s.Selected != nil || s.PendingLocation != "" || s.Rendering {
		t.Errorf("ResetCompare left state: %+v", s)
	}
	if s.Current == nil {
		t.Error("ResetCompare dropped the current device")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	st := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			st.Get(chat)
			st.Clear(chat)
			st.Get(chat)
		}(int64(i % 4))
	}
	wg.Wait()
}
