// Package core defines core data structures with zero external dependencies.
package core

// MissingByte fills every byte of a record slot whose frame could not be decoded.
// Read back as a float it is a NaN; as an integer it is all bits set.
const MissingByte byte = 0xFF

// DefaultMetadataLen is the length of the build identifier frame sent by the device.
const DefaultMetadataLen = 7

// Stats counts frame outcomes over one run.
type Stats struct {
	Frames            int // Frames closed by a delimiter
	Records           int // Slots appended verbatim
	Missing           int // Sentinel slots appended for undecodable frames
	DecodeErrors      int // Always equal to RunResult.ErrorCount
	SizeMismatches    int // Decoded frames dropped for their length, duplicates of metadata included
	DuplicateMetadata int // Metadata-length frames seen after the first
	TrailingBytes     int // Bytes after the final delimiter, never processed
	BytesScanned      int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Frames += o.Frames
	s.Records += o.Records
	s.Missing += o.Missing
	s.DecodeErrors += o.DecodeErrors
	s.SizeMismatches += o.SizeMismatches
	s.DuplicateMetadata += o.DuplicateMetadata
	s.TrailingBytes += o.TrailingBytes
	s.BytesScanned += o.BytesScanned
}

// RunResult is the outcome of one extraction run.
type RunResult struct {
	Metadata    string
	HasMetadata bool
	Records     []byte // RecordCount() slots of RecordSize bytes each
	ErrorCount  int
	RecordSize  int
	Stats       Stats
}

// RecordCount returns the number of slots in Records.
func (r RunResult) RecordCount() int {
	if r.RecordSize <= 0 {
		return 0
	}
	return len(r.Records) / r.RecordSize
}

// Record returns slot i. It panics if i is out of range.
func (r RunResult) Record(i int) []byte {
	return r.Records[i*r.RecordSize : (i+1)*r.RecordSize]
}

// IsMissing reports whether slot is the missing-data sentinel.
func IsMissing(slot []byte) bool {
	if len(slot) == 0 {
		return false
	}
	for _, b := range slot {
		if b != MissingByte {
			return false
		}
	}
	return true
}

// MissingSlot returns a sentinel slot of size bytes.
func MissingSlot(size int) []byte {
	slot := make([]byte, size)
	for i := range slot {
		slot[i] = MissingByte
	}
	return slot
}
