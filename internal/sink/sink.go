// Package sink defines where extraction results go.
package sink

import (
	"time"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/layout"
)

// Report is the outcome of one pipeline run handed to every sink.
type Report struct {
	Source  string
	Mode    string
	Result  core.RunResult
	Decoder *layout.Decoder // nil when no layout was loaded
	Elapsed time.Duration
}

// Sink consumes reports. Send may be called more than once before Close.
type Sink interface {
	Name() string
	Send(r *Report) error
	Close() error
}
