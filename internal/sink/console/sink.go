// Package console prints a human readable run summary.
package console

import (
	"fmt"
	"io"
	"text/tabwriter"

	"firestige.xyz/cobslog/internal/sink"
)

const Name = "console"

type Sink struct {
	w io.Writer
}

func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

func (s *Sink) Name() string { return Name }

func (s *Sink) Send(r *sink.Report) error {
	res := r.Result
	st := res.Stats

	tw := tabwriter.NewWriter(s.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "source:\t%s\n", r.Source)
	if res.HasMetadata {
		fmt.Fprintf(tw, "build:\t%s\n", res.Metadata)
	} else {
		fmt.Fprint(tw, "build:\t(none)\n")
	}
	if r.Decoder != nil {
		l := r.Decoder.Layout()
		fmt.Fprintf(tw, "layout:\t%s (%d fields, %d bytes)\n", l.Name, len(l.Fields), l.Size())
	}
	fmt.Fprintf(tw, "records:\t%d (%d missing)\n", res.RecordCount(), st.Missing)
	fmt.Fprintf(tw, "errors:\t%d\n", res.ErrorCount)
	fmt.Fprintf(tw, "frames:\t%d\n", st.Frames)
	fmt.Fprintf(tw, "size mismatches:\t%d (%d duplicate metadata)\n", st.SizeMismatches, st.DuplicateMetadata)
	fmt.Fprintf(tw, "trailing bytes:\t%d\n", st.TrailingBytes)
	fmt.Fprintf(tw, "bytes scanned:\t%d\n", st.BytesScanned)
	if r.Mode != "" {
		fmt.Fprintf(tw, "mode:\t%s\n", r.Mode)
	}
	if r.Elapsed > 0 {
		fmt.Fprintf(tw, "elapsed:\t%s\n", r.Elapsed)
	}
	return tw.Flush()
}

func (s *Sink) Close() error {
	return nil
}
