// Package csv exports decoded records as comma separated rows.
package csv

import (
	encsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"firestige.xyz/cobslog/internal/sink"
)

const Name = "csv"

// Sink writes a header and one row per record slot. Integer cells of missing
// slots are left empty; float cells read as NaN.
type Sink struct {
	w      *encsv.Writer
	closer io.Closer
	header bool
}

// NewSink writes to w. If w is an io.Closer it is closed by Close.
func NewSink(w io.Writer) *Sink {
	s := &Sink{w: encsv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *Sink) Name() string { return Name }

func (s *Sink) Send(r *sink.Report) error {
	if r.Decoder == nil {
		return errors.New("csv export needs a record layout")
	}
	rows, err := r.Decoder.Rows(r.Result.Records)
	if err != nil {
		return err
	}

	if !s.header {
		header := append([]string{"index", "missing"}, r.Decoder.Names()...)
		if err := s.w.Write(header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		s.header = true
	}

	record := make([]string, 0, 2+len(r.Decoder.Names()))
	for _, row := range rows {
		record = append(record[:0], strconv.Itoa(row.Index), strconv.FormatBool(row.Missing))
		for _, v := range row.Values {
			if row.Missing && !v.Type.IsFloat() {
				record = append(record, "")
				continue
			}
			record = append(record, v.String())
		}
		if err := s.w.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", row.Index, err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *Sink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
