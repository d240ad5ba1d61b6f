package ml

import (
	"errors"
	"fmt"
)

// Error kinds returned by the estimation engine. Every error produced by this
// package wraps ErrConfig, ErrLookup, ErrDimension or ErrData, so callers
// branch with errors.Is.
var (
	// ErrConfig reports a malformed container: missing tables, dangling
	// classifier indices or inconsistent parameter shapes.
	ErrConfig = errors.New("invalid classifier container")
	// ErrLookup reports an unknown skeletal element, slot or posterior bin.
	ErrLookup = errors.New("lookup failed")
	// ErrDimension reports a feature vector whose length does not match the
	// model parameters it is evaluated against.
	ErrDimension = errors.New("dimension mismatch")
	// ErrData reports unusable input values such as a zero standard
	// deviation or a non-finite measurement.
	ErrData = errors.New("invalid data")

	// ErrDatatype reports a container used for the wrong measurement path,
	// e.g. a vertebral container asked for a cross-section estimate. It
	// wraps ErrConfig.
	ErrDatatype = fmt.Errorf("wrong container datatype: %w", ErrConfig)
)
