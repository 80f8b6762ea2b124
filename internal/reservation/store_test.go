package reservation

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/nerrad567/labctl/internal/infrastructure/database"
)

// openTestDB creates a temp-file database; WAL needs a real file.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "reservations.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupStore(t *testing.T) (*Store, *database.DB) {
	t.Helper()

	db := openTestDB(t)
	store, err := Initialize(context.Background(), db)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return store, db
}

func rowCount(t *testing.T, db *database.DB, table, column, value string) int {
	t.Helper()

	var n int
	query := "SELECT COUNT(*) FROM " + table + " WHERE " + column + " = ?"
	if err := db.QueryRowContext(context.Background(), query, value).Scan(&n); err != nil {
		t.Fatalf("counting %s rows: %v", table, err)
	}
	return n
}

func TestInitialize_CreatesSchema(t *testing.T) {
	_, db := setupStore(t)

	tables, err := db.TableNames(context.Background())
	if err != nil {
		t.Fatalf("TableNames() error = %v", err)
	}
	want := []string{"audit_logs", "devices", "reservations", "schema_migrations", "users"}
	if !reflect.DeepEqual(tables, want) {
		t.Errorf("TableNames() = %v, want %v", tables, want)
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()

	if _, err := store.RegisterDevice(ctx, "board-01"); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	before, err := db.TableNames(ctx)
	if err != nil {
		t.Fatalf("TableNames() error = %v", err)
	}

	if _, err := Initialize(ctx, db); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}

	after, err := db.TableNames(ctx)
	if err != nil {
		t.Fatalf("TableNames() error = %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("schema changed: before %v, after %v", before, after)
	}

	n, err := store.CountDevices(ctx)
	if err != nil {
		t.Fatalf("CountDevices() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountDevices() = %d after re-initialise, want 1", n)
	}
}

func TestInitialize_ExistingUntrackedSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// A database created before migrations were tracked.
	legacy := `
		CREATE TABLE users (username PRIMARY KEY);
		CREATE TABLE devices (hostname PRIMARY KEY);
		CREATE TABLE reservations (device_name, last_use INTEGER, made_by, reserved INTEGER,
			FOREIGN KEY(device_name) REFERENCES devices(hostname),
			FOREIGN KEY(made_by) REFERENCES users(username));
	`
	if _, err := db.ExecContext(ctx, legacy); err != nil {
		t.Fatalf("creating legacy schema: %v", err)
	}

	if _, err := Initialize(ctx, db); err != nil {
		t.Fatalf("Initialize() on legacy schema error = %v", err)
	}
}

func TestRegisterDevice_InitialReservation(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	created, err := store.RegisterDevice(ctx, "board-01")
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if !created {
		t.Error("RegisterDevice() created = false for new device")
	}

	r, err := store.Get(ctx, "board-01")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := Reservation{DeviceName: "board-01", LastUse: 0, MadeBy: nil, Reserved: false}
	if !reflect.DeepEqual(*r, want) {
		t.Errorf("Get() = %+v, want %+v", *r, want)
	}
}

func TestRegisterDevice_Twice(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()

	first, err := store.RegisterDevice(ctx, "board-01")
	if err != nil {
		t.Fatalf("first RegisterDevice() error = %v", err)
	}
	second, err := store.RegisterDevice(ctx, "board-01")
	if err != nil {
		t.Fatalf("second RegisterDevice() error = %v", err)
	}

	if !first || second {
		t.Errorf("created = (%v, %v), want (true, false)", first, second)
	}
	if n := rowCount(t, db, "devices", "hostname", "board-01"); n != 1 {
		t.Errorf("devices rows = %d, want 1", n)
	}
	if n := rowCount(t, db, "reservations", "device_name", "board-01"); n != 1 {
		t.Errorf("reservations rows = %d, want 1", n)
	}
}

func TestRegisterDevice_KeepsExistingReservationState(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()

	if _, err := store.RegisterDevice(ctx, "board-01"); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO users (username) VALUES ('alice')`); err != nil {
		t.Fatalf("inserting user: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`UPDATE reservations SET reserved = 1, made_by = 'alice', last_use = 1700000000 WHERE device_name = 'board-01'`,
	); err != nil {
		t.Fatalf("updating reservation: %v", err)
	}

	if _, err := store.RegisterDevice(ctx, "board-01"); err != nil {
		t.Fatalf("re-RegisterDevice() error = %v", err)
	}

	r, err := store.Get(ctx, "board-01")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !r.Reserved || r.MadeBy == nil || *r.MadeBy != "alice" || r.LastUse != 1700000000 {
		t.Errorf("reservation overwritten by re-registration: %+v", r)
	}
}

func TestRegisterDevice_OrphanReservationTolerated(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Reservation row without a device row; foreign keys off so the
	// inconsistent state can be constructed.
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatalf("disabling foreign keys: %v", err)
	}
	store, err := Initialize(ctx, db)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO reservations (device_name) VALUES ('board-02')`); err != nil {
		t.Fatalf("inserting orphan reservation: %v", err)
	}

	created, err := store.RegisterDevice(ctx, "board-02")
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if created {
		t.Error("RegisterDevice() created = true despite conflicting reservation row")
	}
	if n := rowCount(t, db, "devices", "hostname", "board-02"); n != 0 {
		t.Errorf("devices rows = %d, want 0 (partial insert must roll back)", n)
	}
}

func TestRegisterDevice_EmptyName(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.RegisterDevice(context.Background(), "  ")
	if !errors.Is(err, ErrInvalidDeviceName) {
		t.Errorf("RegisterDevice(\"  \") error = %v, want ErrInvalidDeviceName", err)
	}
}

func TestRegisterDevice_Concurrent(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.RegisterDevice(ctx, "shared-board")
			if err != nil {
				t.Errorf("RegisterDevice() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created count = %d, want exactly 1", created)
	}
	if n := rowCount(t, db, "reservations", "device_name", "shared-board"); n != 1 {
		t.Errorf("reservations rows = %d, want 1", n)
	}
}

func TestGet_NotFound(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrReservationNotFound) {
		t.Errorf("Get() error = %v, want ErrReservationNotFound", err)
	}
}

func TestList_Ordered(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	for _, name := range []string{"c-board", "a-board", "b-board"} {
		if _, err := store.RegisterDevice(ctx, name); err != nil {
			t.Fatalf("RegisterDevice(%q) error = %v", name, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, r := range list {
		names = append(names, r.DeviceName)
	}
	want := []string{"a-board", "b-board", "c-board"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List() names = %v, want %v", names, want)
	}
}
