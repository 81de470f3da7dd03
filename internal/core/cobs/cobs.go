// Package cobs implements Consistent Overhead Byte Stuffing.
//
// An encoded unit never contains the delimiter byte 0x00. Each group starts
// with a code byte L (1..255) followed by L-1 literal bytes; a code below 255
// stands for a suppressed 0x00 after its literals unless the group ends the
// unit.
package cobs

import (
	"errors"
	"fmt"

	"firestige.xyz/cobslog/internal/core"
)

// Delimiter separates encoded units on the wire.
const Delimiter byte = 0x00

// maxCode marks a full group with no suppressed delimiter.
const maxCode = 0xFF

var (
	ErrLengthOverrun = errors.New("length code exceeds remaining input")
	ErrTrailingData  = errors.New("unconsumed bytes after end of encoded unit")
)

// DecodeError reports a structurally invalid encoded unit.
// It matches core.ErrFrameDecode and the specific cause with errors.Is.
type DecodeError struct {
	Offset int // Position of the offending byte within the frame
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cobs: %v at offset %d", e.Err, e.Offset)
}

func (e *DecodeError) Unwrap() []error {
	return []error{core.ErrFrameDecode, e.Err}
}

// Decode reverses the stuffing of one frame.
//
// In strict mode a length code that overruns the frame and bytes left over
// after a 0x00 terminator are errors. A single terminator as the last byte is
// accepted in both modes. Otherwise decoding stops at the first terminator and
// a short final group yields whatever bytes are present.
//
// An empty frame decodes to an empty payload.
func Decode(frame []byte, strict bool) ([]byte, error) {
	return AppendDecode(make([]byte, 0, len(frame)), frame, strict)
}

// AppendDecode decodes frame and appends the payload to dst. On error dst is
// returned with its original length.
func AppendDecode(dst, frame []byte, strict bool) ([]byte, error) {
	start := len(dst)
	end := len(frame)
	for i, b := range frame {
		if b != Delimiter {
			continue
		}
		if strict && i != len(frame)-1 {
			return dst[:start], &DecodeError{Offset: i + 1, Err: ErrTrailingData}
		}
		end = i
		break
	}

	for i := 0; i < end; {
		code := int(frame[i])
		pos := i
		i++
		next := i + code - 1
		if next > end {
			if strict {
				return dst[:start], &DecodeError{Offset: pos, Err: ErrLengthOverrun}
			}
			dst = append(dst, frame[i:end]...)
			break
		}
		dst = append(dst, frame[i:next]...)
		i = next
		if code != maxCode && i < end {
			dst = append(dst, Delimiter)
		}
	}

	return dst, nil
}

// Sizer follows the group structure of a frame written to it in pieces and
// reports what Decode would return for the whole frame, without keeping the
// bytes. Writes must not contain the delimiter.
type Sizer struct {
	n       int  // encoded bytes written
	decoded int  // payload bytes so far
	left    int  // literal bytes still owed to the current group
	code    byte // current group code, 0 before the first group
	codePos int
}

// Write consumes the next encoded bytes of the frame. It never fails.
func (s *Sizer) Write(p []byte) (int, error) {
	for i := 0; i < len(p); {
		if s.left > 0 {
			take := min(s.left, len(p)-i)
			s.decoded += take
			s.left -= take
			i += take
			continue
		}
		// a group followed by another group ends with a suppressed 0x00
		if s.code != 0 && s.code != maxCode {
			s.decoded++
		}
		s.code = p[i]
		s.codePos = s.n + i
		s.left = int(p[i]) - 1
		i++
	}
	s.n += len(p)
	return len(p), nil
}

// Len returns the number of encoded bytes written.
func (s *Sizer) Len() int {
	return s.n
}

// Finish returns the decoded length of the frame, or the error strict
// decoding reports for it.
func (s *Sizer) Finish(strict bool) (int, error) {
	if strict && s.left > 0 {
		return 0, &DecodeError{Offset: s.codePos, Err: ErrLengthOverrun}
	}
	return s.decoded, nil
}

// MaxEncodedLen returns the worst-case encoded size of an n byte payload.
func MaxEncodedLen(n int) int {
	return n + n/(maxCode-1) + 1
}

// Encode stuffs payload into a single unit without a trailing delimiter.
func Encode(payload []byte) []byte {
	return AppendEncode(make([]byte, 0, MaxEncodedLen(len(payload))), payload)
}

// AppendEncode stuffs payload and appends the unit to dst.
func AppendEncode(dst, payload []byte) []byte {
	codeIdx := len(dst)
	dst = append(dst, 0)
	code := byte(1)

	for i, b := range payload {
		if b == Delimiter {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}
		dst = append(dst, b)
		code++
		if code == maxCode && i+1 < len(payload) {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeIdx] = code

	return dst
}

// AppendFrame appends the encoded payload followed by a delimiter.
func AppendFrame(dst, payload []byte) []byte {
	return append(AppendEncode(dst, payload), Delimiter)
}
