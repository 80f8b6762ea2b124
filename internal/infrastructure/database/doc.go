// Package database provides SQLite connectivity for labctl.
//
// This package manages:
//   - Database connection with foreign keys, busy timeout and optional WAL mode
//   - A single-writer connection pool, matching SQLite's locking model
//   - Schema migrations read from any fs.FS (normally the embedded migrations package)
//
// Several labctl processes may open the same database file at once; the
// busy timeout lets a second writer wait instead of failing immediately.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "data/remote-control.db", BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql and are
// applied in version order. There are no down migrations.
package database
