// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors, prefixed with the module name so they read well once wrapped.
var (
	// Frame decoding errors
	ErrFrameDecode  = errors.New("cobslog: frame decode failed")
	ErrSizeMismatch = errors.New("cobslog: decoded payload size mismatch")

	// Extractor errors
	ErrInvalidOptions = errors.New("cobslog: invalid extractor options")

	// Layout errors
	ErrLayoutInvalid     = errors.New("cobslog: invalid record layout")
	ErrUnknownFieldType  = errors.New("cobslog: unknown field type")
	ErrUnsupportedLayout = errors.New("cobslog: unsupported layout file format")
	ErrMisalignedRecords = errors.New("cobslog: record buffer not a multiple of record size")

	// Configuration errors
	ErrConfigInvalid = errors.New("cobslog: invalid configuration")

	// Source errors
	ErrSourceNotOpen = errors.New("cobslog: source not open")
)
