// Package extract recovers fixed-size telemetry records from a COBS framed
// byte stream.
//
// Every frame closed by a 0x00 delimiter is decoded and classified:
//
//   - decode failure: a missing-data slot (all 0xFF) is appended and counted
//     in the error count;
//   - payload of RecordSize bytes: appended verbatim;
//   - payload of MetadataLen bytes, first time only: captured as the build
//     identifier, no slot;
//   - anything else: reported to the observer and dropped, not counted.
//
// Bytes after the final delimiter are ignored.
package extract

import (
	"fmt"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/core/cobs"
)

// Options configures an extraction run.
type Options struct {
	RecordSize  int      // Bytes per record, required
	MetadataLen int      // Length of the build identifier frame, 0 means core.DefaultMetadataLen
	Lenient     bool     // Decode frames in non-strict mode
	Observer    Observer // Optional per-frame diagnostics
}

func (o Options) withDefaults() Options {
	if o.MetadataLen == 0 {
		o.MetadataLen = core.DefaultMetadataLen
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	return o
}

// Validate checks that the options describe a usable run.
func (o Options) Validate() error {
	if o.RecordSize <= 0 {
		return fmt.Errorf("%w: record size must be positive, got %d", core.ErrInvalidOptions, o.RecordSize)
	}
	if o.MetadataLen < 0 {
		return fmt.Errorf("%w: metadata length must be positive, got %d", core.ErrInvalidOptions, o.MetadataLen)
	}
	return nil
}

// Extractor runs extractions with fixed options. It holds no per-run state and
// is safe for concurrent use as long as its Observer is.
type Extractor struct {
	opts Options
}

// New validates opts and returns an Extractor.
func New(opts Options) (*Extractor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{opts: opts.withDefaults()}, nil
}

// Extract is shorthand for New(opts) followed by Extract(buf).
func Extract(buf []byte, opts Options) (core.RunResult, error) {
	e, err := New(opts)
	if err != nil {
		return core.RunResult{}, err
	}
	return e.Extract(buf), nil
}

// Options returns the effective options, defaults applied.
func (e *Extractor) Options() Options {
	return e.opts
}

// Extract processes buf in a single pass.
func (e *Extractor) Extract(buf []byte) core.RunResult {
	acc := newAccumulator(e.opts, len(buf))
	trailing, _ := walk(buf, 0, func(f Frame) error {
		acc.frame(f)
		return nil
	})
	acc.trailing(trailing)
	acc.result.Stats.BytesScanned = len(buf)
	return acc.result
}

// accumulator owns the output of one run.
type accumulator struct {
	opts    Options
	result  core.RunResult
	scratch []byte
	missing []byte
}

func newAccumulator(opts Options, sizeHint int) *accumulator {
	return &accumulator{
		opts: opts,
		result: core.RunResult{
			RecordSize: opts.RecordSize,
			Records:    make([]byte, 0, sizeHint),
		},
		scratch: make([]byte, 0, opts.RecordSize),
		missing: core.MissingSlot(opts.RecordSize),
	}
}

func (a *accumulator) frame(f Frame) {
	payload, err := cobs.AppendDecode(a.scratch[:0], f.Data, !a.opts.Lenient)
	if err != nil {
		a.missingFrame(f, err)
		return
	}
	a.scratch = payload

	r := &a.result
	r.Stats.Frames++
	switch {
	case len(payload) == a.opts.RecordSize:
		r.Records = append(r.Records, payload...)
		r.Stats.Records++
		a.opts.Observer.OnRecord(f, payload)
	case len(payload) == a.opts.MetadataLen && !r.HasMetadata:
		r.Metadata = metadataText(payload)
		r.HasMetadata = true
		a.opts.Observer.OnMetadata(f, r.Metadata)
	default:
		a.mismatch(f, len(payload))
	}
}

// measured classifies a frame whose bytes were not kept, from its decoded
// length or decode error alone. Such a frame is never a record or metadata.
func (a *accumulator) measured(f Frame, n int, err error) {
	if err != nil {
		a.missingFrame(f, err)
		return
	}
	a.result.Stats.Frames++
	a.mismatch(f, n)
}

func (a *accumulator) missingFrame(f Frame, err error) {
	r := &a.result
	r.Stats.Frames++
	r.ErrorCount++
	r.Stats.DecodeErrors++
	r.Stats.Missing++
	r.Records = append(r.Records, a.missing...)
	a.opts.Observer.OnMissing(f, err)
}

func (a *accumulator) mismatch(f Frame, n int) {
	r := &a.result
	dup := n == a.opts.MetadataLen && r.HasMetadata
	r.Stats.SizeMismatches++
	if dup {
		r.Stats.DuplicateMetadata++
	}
	a.opts.Observer.OnSizeMismatch(f, &SizeMismatchError{
		Got:       n,
		Want:      a.opts.RecordSize,
		Duplicate: dup,
	})
}

func (a *accumulator) trailing(n int) {
	a.result.Stats.TrailingBytes += n
	if n > 0 {
		a.opts.Observer.OnTrailing(n)
	}
}

// metadataText maps the identifier to ASCII; bytes outside 7-bit ASCII become '?'.
func metadataText(p []byte) string {
	buf := make([]byte, len(p))
	for i, b := range p {
		if b >= 0x80 {
			b = '?'
		}
		buf[i] = b
	}
	return string(buf)
}
