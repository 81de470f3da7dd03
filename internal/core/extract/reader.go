package extract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/core/cobs"
)

// MaxFrameLen bounds how much of one encoded frame ExtractReader buffers.
// It limits memory, not validity: a longer frame is measured as it streams
// past and classified like any other, as a missing slot when strict decoding
// fails and as a size mismatch otherwise.
const MaxFrameLen = 1 << 20

// ExtractReader runs the same classification as Extract over a byte source.
// Cancellation is checked between frames. On a read error or cancellation the
// result accumulated so far is returned together with the error.
func (e *Extractor) ExtractReader(ctx context.Context, r io.Reader) (core.RunResult, error) {
	return e.extractReader(ctx, r, MaxFrameLen)
}

func (e *Extractor) extractReader(ctx context.Context, r io.Reader, maxLen int) (core.RunResult, error) {
	acc := newAccumulator(e.opts, 0)
	fs := &frameSplitter{maxLen: maxLen}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(4096, maxLen)), maxLen)
	sc.Split(fs.split)

	offset := 0
	for idx := 0; sc.Scan(); idx++ {
		if err := ctx.Err(); err != nil {
			acc.result.Stats.BytesScanned = offset
			return acc.result, err
		}
		if big := fs.closed; big != nil {
			fs.closed = nil
			f := Frame{Index: idx, Offset: offset, size: big.Len()}
			n, err := big.Finish(!e.opts.Lenient)
			acc.measured(f, n, err)
			offset += big.Len() + 1
			continue
		}
		data := sc.Bytes()
		acc.frame(Frame{Index: idx, Offset: offset, Data: data})
		offset += len(data) + 1
	}
	if err := sc.Err(); err != nil {
		acc.result.Stats.BytesScanned = offset
		return acc.result, fmt.Errorf("read frame %d at offset %d: %w", acc.result.Stats.Frames, offset, err)
	}

	acc.trailing(fs.trailing)
	acc.result.Stats.BytesScanned = offset + fs.trailing
	return acc.result, nil
}

// frameSplitter is a bufio.SplitFunc state that yields delimiter-free frames.
// Once maxLen bytes are buffered without a delimiter it stops buffering and
// streams the rest of the frame through a cobs.Sizer. The frame is then
// yielded as an empty token with closed set.
type frameSplitter struct {
	maxLen   int
	big      *cobs.Sizer // frame being measured, nil when buffering
	closed   *cobs.Sizer // measured frame behind the last token
	trailing int
}

func (s *frameSplitter) split(data []byte, atEOF bool) (int, []byte, error) {
	i := bytes.IndexByte(data, cobs.Delimiter)

	if s.big != nil {
		if i >= 0 {
			_, _ = s.big.Write(data[:i])
			s.closed, s.big = s.big, nil
			return i + 1, data[:0:0], nil
		}
		_, _ = s.big.Write(data)
		if atEOF {
			s.trailing = s.big.Len()
			s.big = nil
		}
		return len(data), nil, nil
	}

	if i >= 0 {
		return i + 1, data[:i:i], nil
	}
	if atEOF && len(data) > 0 {
		s.trailing = len(data)
		return len(data), nil, nil
	}
	if len(data) >= s.maxLen {
		s.big = &cobs.Sizer{}
		_, _ = s.big.Write(data)
		return len(data), nil, nil
	}
	return 0, nil, nil
}
