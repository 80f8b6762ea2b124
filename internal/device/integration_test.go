package device_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/labctl/internal/device"
	"github.com/nerrad567/labctl/internal/infrastructure/database"
	"github.com/nerrad567/labctl/internal/reservation"
)

func TestIntegration_SyncIntoReservationStore(t *testing.T) {
	ctx := context.Background()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "remote-control.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	store, err := reservation.Initialize(ctx, db)
	if err != nil {
		t.Fatalf("reservation.Initialize() error = %v", err)
	}

	dir := t.TempDir()
	files := map[string]string{
		"a.conf":   "hostname = board-a\nhard_reset_command = r\npower_off_cmd = p\nconnection_command = c\n",
		"b.conf":   "hostname = board-b\nhard_reset_command = r\npower_off_cmd = p\nconnection_command = c\n",
		"dup.conf": "hostname = board-a\nhard_reset_command = r2\npower_off_cmd = p2\nconnection_command = c2\n",
		"bad.conf": "hostname = board-c\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	for run := 0; run < 2; run++ {
		devices, err := device.LoadDirectory(ctx, dir, store)
		if err != nil {
			t.Fatalf("run %d: LoadDirectory() error = %v", run, err)
		}
		if len(devices) != 2 {
			t.Errorf("run %d: len(devices) = %d, want 2", run, len(devices))
		}
	}

	n, err := store.CountDevices(ctx)
	if err != nil {
		t.Fatalf("CountDevices() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountDevices() = %d, want 2", n)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, r := range list {
		if r.Reserved || r.MadeBy != nil || r.LastUse != 0 {
			t.Errorf("reservation %s not in initial state: %+v", r.DeviceName, r)
		}
	}
}
