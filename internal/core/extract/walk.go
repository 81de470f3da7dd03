package extract

import (
	"bytes"

	"firestige.xyz/cobslog/internal/core/cobs"
)

// Frame is one delimited, still encoded, range of the stream.
type Frame struct {
	Index  int    // Position in stream order, starting at 0
	Offset int    // Byte offset of the first encoded byte
	Data   []byte // Encoded bytes, delimiter excluded; may be empty

	size int // Encoded length when Data was not retained
}

// Len returns the encoded length of the frame. It differs from len(Data)
// only for frames longer than MaxFrameLen read by ExtractReader, whose Data
// is nil.
func (f Frame) Len() int {
	if f.Data == nil && f.size > 0 {
		return f.size
	}
	return len(f.Data)
}

// Walk calls fn for every frame closed by a delimiter in buf, in order.
// Bytes after the last delimiter never form a frame; their count is returned
// as trailing. Walk stops at the first error returned by fn.
func Walk(buf []byte, fn func(Frame) error) (trailing int, err error) {
	return walk(buf, 0, fn)
}

func walk(buf []byte, base int, fn func(Frame) error) (int, error) {
	start := 0
	for idx := 0; ; idx++ {
		i := bytes.IndexByte(buf[start:], cobs.Delimiter)
		if i < 0 {
			break
		}
		end := start + i
		f := Frame{Index: idx, Offset: base + start, Data: buf[start:end:end]}
		if err := fn(f); err != nil {
			return len(buf) - (end + 1), err
		}
		start = end + 1
	}
	return len(buf) - start, nil
}
