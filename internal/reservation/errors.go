package reservation

import "errors"

// Domain errors for the reservation package.
var (
	// ErrReservationNotFound is returned when no reservation row exists for a device.
	ErrReservationNotFound = errors.New("reservation: not found")

	// ErrInvalidDeviceName is returned when registering a device with an empty name.
	ErrInvalidDeviceName = errors.New("reservation: invalid device name")
)
