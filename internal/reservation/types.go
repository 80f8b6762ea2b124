package reservation

// Reservation is the check-out state of one device.
// Exactly one row exists per registered device; it is created together
// with the device and only ever updated afterwards.
type Reservation struct {
	DeviceName string `json:"device_name"`

	// LastUse is the last check-out time in Unix seconds, 0 if never used.
	LastUse int64 `json:"last_use"`

	// MadeBy is the username holding the reservation, nil when unset.
	MadeBy *string `json:"made_by,omitempty"`

	Reserved bool `json:"reserved"`
}
