// Package raw writes the extracted record buffer unchanged, one fixed-size
// slot after another, for loading with other tools.
package raw

import (
	"fmt"
	"io"

	"firestige.xyz/cobslog/internal/sink"
)

const Name = "raw"

type Sink struct {
	w      io.Writer
	closer io.Closer
}

// NewSink writes to w. If w is an io.Closer it is closed by Close.
func NewSink(w io.Writer) *Sink {
	s := &Sink{w: w}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *Sink) Name() string { return Name }

func (s *Sink) Send(r *sink.Report) error {
	if _, err := s.w.Write(r.Result.Records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
