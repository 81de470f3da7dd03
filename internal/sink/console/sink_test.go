package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/layout"
	"firestige.xyz/cobslog/internal/sink"
)

func TestSummary(t *testing.T) {
	dec, err := layout.NewDecoder(core.RecordLayout{
		Name:   "probe",
		Fields: []core.Field{{Name: "t", Type: core.Uint32}, {Name: "v", Type: core.Float32}},
	})
	require.NoError(t, err)

	var out bytes.Buffer
	s := NewSink(&out)
	assert.Equal(t, Name, s.Name())

	err = s.Send(&sink.Report{
		Source: "run.bin",
		Mode:   "parallel",
		Result: core.RunResult{
			Metadata:    "a1b2c3d",
			HasMetadata: true,
			Records:     make([]byte, 24),
			RecordSize:  8,
			ErrorCount:  1,
			Stats:       core.Stats{Frames: 6, Missing: 1, SizeMismatches: 2, DuplicateMetadata: 1, TrailingBytes: 3, BytesScanned: 80},
		},
		Decoder: dec,
		Elapsed: 2 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	text := out.String()
	assert.Contains(t, text, "source:")
	assert.Contains(t, text, "run.bin")
	assert.Contains(t, text, "a1b2c3d")
	assert.Contains(t, text, "probe (2 fields, 8 bytes)")
	assert.Contains(t, text, "3 (1 missing)")
	assert.Contains(t, text, "2 (1 duplicate metadata)")
	assert.Contains(t, text, "parallel")
	assert.Contains(t, text, "2ms")
}

func TestSummaryWithoutMetadata(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewSink(&out).Send(&sink.Report{Source: "x", Result: core.RunResult{RecordSize: 4}}))
	assert.Contains(t, out.String(), "(none)")
	assert.NotContains(t, out.String(), "layout:")
	assert.NotContains(t, out.String(), "elapsed:")
}
