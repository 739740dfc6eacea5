package store

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertUser(t *testing.T) {
	store := setupTestStore(t)

	u := User{ID: 42, Username: "ani", FirstName: "Ani"}
	if err := store.UpsertUser(u); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	got, err := store.GetUser(42)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got == nil {
		t.Fatal("GetUser returned nil")
	}
	if got.Username != "ani" || got.FirstName != "Ani" {
		t.Errorf("user = %+v", got)
	}

	u.Username = "ani_h"
	if err := store.UpsertUser(u); err != nil {
		t.Fatalf("UpsertUser update: %v", err)
	}
	got, err = store.GetUser(42)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "ani_h" {
		t.Errorf("Username = %q, want ani_h", got.Username)
	}
	if !got.LastSeen.After(got.FirstSeen) && !got.LastSeen.Equal(got.FirstSeen) {
		t.Errorf("LastSeen %v before FirstSeen %v", got.LastSeen, got.FirstSeen)
	}
}

func TestGetUserMissing(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.GetUser(999)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got != nil {
		t.Errorf("GetUser = %+v, want nil for unknown user", got)
	}
}

func TestCommandLog(t *testing.T) {
	store := setupTestStore(t)

	for _, cmd := range []string{"/start", "/compare", "/compare", "/current"} {
		if err := store.LogCommand(1, 42, cmd); err != nil {
			t.Fatalf("LogCommand(%s): %v", cmd, err)
		}
	}

	counts, err := store.CommandCounts()
	if err != nil {
		t.Fatalf("CommandCounts: %v", err)
	}
	if counts["/compare"] != 2 {
		t.Errorf("compare count = %d, want 2", counts["/compare"])
	}
	if counts["/start"] != 1 {
		t.Errorf("start count = %d, want 1", counts["/start"])
	}
}

func TestDeviceSelections(t *testing.T) {
	store := setupTestStore(t)

	if err := store.RecordDeviceSelection(1, "100", "Berd"); err != nil {
		t.Fatalf("RecordDeviceSelection: %v", err)
	}
	if err := store.RecordDeviceSelection(1, "200", "Gavar"); err != nil {
		t.Fatalf("RecordDeviceSelection: %v", err)
	}

	id, name, err := store.LastDeviceSelection(1)
	if err != nil {
		t.Fatalf("LastDeviceSelection: %v", err)
	}
	if id != "200" || name != "Gavar" {
		t.Errorf("last selection = %s/%s, want 200/Gavar", id, name)
	}

	id, name, err = store.LastDeviceSelection(2)
	if err != nil {
		t.Fatalf("LastDeviceSelection unknown chat: %v", err)
	}
	if id != "" || name != "" {
		t.Errorf("unknown chat selection = %s/%s, want empty", id, name)
	}
}

func TestRecordUserLocation(t *testing.T) {
	store := setupTestStore(t)

	if err := store.RecordUserLocation(42, "44.51,40.18"); err != nil {
		t.Fatalf("RecordUserLocation: %v", err)
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	db, err := Open(t.TempDir() + "/bot.db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}
