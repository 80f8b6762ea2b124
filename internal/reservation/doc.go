// Package reservation owns the persistent users/devices/reservations schema
// and the idempotent device registration contract.
//
// Registration inserts the devices row and its initial reservation row
// (last_use=0, made_by=NULL, reserved=0) in one transaction. Registering
// a name that already exists changes nothing and is reported as
// created=false rather than as an error, so a directory can be re-synced
// any number of times.
//
// Usage:
//
//	store, err := reservation.Initialize(ctx, db)
//	if err != nil {
//	    return err
//	}
//	created, err := store.RegisterDevice(ctx, "board-01")
//
// Updating reservations (check-out, release) belongs to callers, who are
// expected to serialise it per device with the lock package.
package reservation
