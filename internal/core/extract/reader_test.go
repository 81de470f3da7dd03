package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/cobslog/internal/core/cobs"
)

func TestExtractReaderMatchesExtract(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for run := 0; run < 20; run++ {
		recordSize := rng.Intn(16) + 8
		buf := randomCapture(rng, 300, recordSize)

		seq, str := &transcript{}, &transcript{}
		es, err := New(Options{RecordSize: recordSize, Observer: seq})
		require.NoError(t, err)
		er, err := New(Options{RecordSize: recordSize, Observer: str})
		require.NoError(t, err)

		want := es.Extract(buf)
		// one byte at a time exercises frames split across reads
		got, err := er.ExtractReader(context.Background(), iotest.OneByteReader(bytes.NewReader(buf)))
		require.NoError(t, err)

		require.Equal(t, want.Metadata, got.Metadata, "run %d", run)
		require.True(t, bytes.Equal(want.Records, got.Records), "run %d", run)
		require.Equal(t, want.ErrorCount, got.ErrorCount, "run %d", run)
		require.Equal(t, want.Stats, got.Stats, "run %d", run)
		require.Equal(t, seq.lines, str.lines, "run %d", run)
	}
}

func TestExtractReaderEmptyFrames(t *testing.T) {
	e, err := New(Options{RecordSize: 4})
	require.NoError(t, err)

	r, err := e.ExtractReader(context.Background(), bytes.NewReader([]byte{0, 0}))
	require.NoError(t, err)
	assert.Empty(t, r.Records)
	assert.Equal(t, 2, r.Stats.Frames)
	assert.Equal(t, 0, r.ErrorCount)
}

func TestExtractReaderReadError(t *testing.T) {
	e, err := New(Options{RecordSize: 4})
	require.NoError(t, err)

	boom := errors.New("link down")
	src := io.MultiReader(bytes.NewReader(stream([]byte{1, 2, 3, 4})), iotest.ErrReader(boom))

	r, err := e.ExtractReader(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []byte{1, 2, 3, 4}, r.Records)
}

func TestExtractReaderCancelled(t *testing.T) {
	e, err := New(Options{RecordSize: 4})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.ExtractReader(ctx, bytes.NewReader(stream([]byte{1, 2, 3, 4})))
	assert.ErrorIs(t, err, context.Canceled)
}

// oversizeCapture holds a record, a frame of 0xFF codes that overruns its
// final group, a clean frame longer than the buffer, and another record.
func oversizeCapture(n int) []byte {
	buf := stream([]byte{1, 2, 3, 4})
	buf = append(buf, bytes.Repeat([]byte{0xFF}, n)...)
	buf = append(buf, 0x00)
	buf = cobs.AppendFrame(buf, bytes.Repeat([]byte{0x11}, n))
	return append(buf, stream([]byte{5, 6, 7, 8})...)
}

func TestExtractReaderFrameLongerThanMaxFrameLen(t *testing.T) {
	buf := oversizeCapture(MaxFrameLen + 10)

	seq, str := &transcript{}, &transcript{}
	es, err := New(Options{RecordSize: 4, Observer: seq})
	require.NoError(t, err)
	er, err := New(Options{RecordSize: 4, Observer: str})
	require.NoError(t, err)

	want := es.Extract(buf)
	got, err := er.ExtractReader(context.Background(), bytes.NewReader(buf))
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, seq.lines, str.lines)

	assert.Equal(t, []byte{1, 2, 3, 4, 0xFF, 0xFF, 0xFF, 0xFF, 5, 6, 7, 8}, got.Records)
	assert.Equal(t, 1, got.ErrorCount)
	assert.Equal(t, 1, got.Stats.SizeMismatches)
	assert.Equal(t, 4, got.Stats.Frames)
	assert.Equal(t, len(buf), got.Stats.BytesScanned)
}

func TestExtractReaderOversizeLenient(t *testing.T) {
	buf := oversizeCapture(200)

	e, err := New(Options{RecordSize: 4, Lenient: true})
	require.NoError(t, err)

	want := e.Extract(buf)
	got, err := e.extractReader(context.Background(), bytes.NewReader(buf), 32)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, 0, got.ErrorCount)
	assert.Equal(t, 2, got.Stats.SizeMismatches)
	assert.Equal(t, 2, got.RecordCount())
}

func TestExtractReaderOversizeTrailing(t *testing.T) {
	buf := append(stream([]byte{1, 2, 3, 4}), bytes.Repeat([]byte{0x42}, 100)...)

	e, err := New(Options{RecordSize: 4})
	require.NoError(t, err)

	got, err := e.extractReader(context.Background(), bytes.NewReader(buf), 16)
	require.NoError(t, err)

	assert.Equal(t, e.Extract(buf), got)
	assert.Equal(t, 100, got.Stats.TrailingBytes)
	assert.Equal(t, 1, got.Stats.Frames)
}

func TestExtractReaderSmallBufferMatchesExtract(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	for run := 0; run < 40; run++ {
		recordSize := rng.Intn(8) + 8
		buf := randomCapture(rng, 200, recordSize)
		// long garbage runs cross the buffer limit
		for i := rng.Intn(4); i > 0; i-- {
			n := rng.Intn(300) + 20
			for j := 0; j < n; j++ {
				buf = append(buf, byte(rng.Intn(255)+1))
			}
			buf = append(buf, 0x00)
			buf = cobs.AppendFrame(buf, make([]byte, recordSize))
		}
		lenient := run%2 == 1

		seq, str := &transcript{}, &transcript{}
		es, err := New(Options{RecordSize: recordSize, Lenient: lenient, Observer: seq})
		require.NoError(t, err)
		er, err := New(Options{RecordSize: recordSize, Lenient: lenient, Observer: str})
		require.NoError(t, err)

		want := es.Extract(buf)
		got, err := er.extractReader(context.Background(), iotest.HalfReader(bytes.NewReader(buf)), 24)
		require.NoError(t, err)

		require.Equal(t, want, got, "run %d", run)
		require.Equal(t, seq.lines, str.lines, "run %d", run)
	}
}
