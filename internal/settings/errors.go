package settings

import "errors"

var (
	// ErrProbe is returned when the override file existence check fails for a reason other than absence.
	ErrProbe = errors.New("override file probe failed")
	// ErrInvalidOverlay is returned when an override file cannot be parsed or holds unsupported values.
	ErrInvalidOverlay = errors.New("invalid override file")
	// ErrUnsupportedOverlay is returned for override files with an unknown extension.
	ErrUnsupportedOverlay = errors.New("unsupported override file format")
)
