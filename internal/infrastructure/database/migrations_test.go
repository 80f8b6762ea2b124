package database

import (
	"context"
	"os"
	"reflect"
	"testing"
	"testing/fstest"
	"time"
)

// testMigrations is the fixture directory with two up migrations.
var testMigrations = os.DirFS("testdata")

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	tables, err := db.TableNames(ctx)
	if err != nil {
		t.Fatalf("TableNames() error = %v", err)
	}
	want := []string{"schema_migrations", "test_bookings", "test_users"}
	if !reflect.DeepEqual(tables, want) {
		t.Errorf("TableNames() = %v, want %v", tables, want)
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}
	if applied[0].Version != "20260101_000000" {
		t.Errorf("first applied version = %q, want 20260101_000000", applied[0].Version)
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	again, _, err := db.MigrationStatus(ctx, testMigrations)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(again) != 2 {
		t.Errorf("expected 2 applied migrations after re-run, got %d", len(again))
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	src := fstest.MapFS{
		"20260101_000000_good.up.sql": {Data: []byte("CREATE TABLE good (id INTEGER);")},
		"20260102_000000_bad.up.sql":  {Data: []byte("CREATE TABLE broken (;")},
	}

	ctx := context.Background()
	if err := db.Migrate(ctx, src); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}

	applied, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1 and 1", len(applied), len(pending))
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantOK      bool
	}{
		{"20260301_090000_reservation_schema.up.sql", "20260301_090000", true},
		{"20260301_090000_reservation_schema.down.sql", "", false},
		{"20260301_090000_reservation_schema.sql", "", false},
		{"README.txt", "", false},
		{"nounderscore.up.sql", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, ok := parseMigrationFilename(tt.name)
			if version != tt.wantVersion || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = (%q, %v), want (%q, %v)",
					tt.name, version, ok, tt.wantVersion, tt.wantOK)
			}
		})
	}
}

func TestMigrationName(t *testing.T) {
	if got := migrationName("20260301_090000_reservation_schema.up.sql"); got != "reservation_schema" {
		t.Errorf("migrationName() = %q, want reservation_schema", got)
	}
}
