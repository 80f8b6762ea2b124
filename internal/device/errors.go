package device

import "errors"

// Domain errors for the device package.
//
// ErrHiddenFile, ErrMissingKey and ErrNotRegularFile mark a single file
// as unusable; a directory sync records and skips it. Use IsSkippable to
// test for any of them.
var (
	// ErrMissingKey is returned when a required key is absent, or when
	// hostname is present but empty.
	ErrMissingKey = errors.New("device: missing required key")

	// ErrHiddenFile is returned for files whose name starts with a dot.
	ErrHiddenFile = errors.New("device: hidden file")

	// ErrNotRegularFile is returned for directory entries that are not
	// regular files.
	ErrNotRegularFile = errors.New("device: not a regular file")

	// ErrMalformedConfig is returned when the file cannot be parsed at all.
	ErrMalformedConfig = errors.New("device: malformed config")
)

// IsSkippable reports whether err only disqualifies the one file it was
// returned for.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrMissingKey) ||
		errors.Is(err, ErrHiddenFile) ||
		errors.Is(err, ErrNotRegularFile)
}
