package lava

import (
	"errors"
	"fmt"
)

// Sentinel errors for the LAVA connector.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidServerURL is returned when the server URL cannot be parsed,
	// has no host, or its path does not contain RPC2.
	ErrInvalidServerURL = errors.New("lava: server URL must end with /RPC2")

	// ErrUnsupportedScheme is returned for schemes other than http and https.
	ErrUnsupportedScheme = errors.New("lava: unsupported URL scheme")

	// ErrConnectionFailed is returned when the client cannot be built or
	// the server does not answer.
	ErrConnectionFailed = errors.New("lava: connection failed")
)

// FatalError marks a misconfiguration or connection failure that the
// process should not try to recover from. Library code returns it; only
// the command entry point decides to exit.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("lava: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err, or any error it wraps, is a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

func fatal(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}
