package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/core/extract"
)

func TestObserverCountsOutcomes(t *testing.T) {
	const source = "observer-test.bin"
	o := NewObserver(source)

	o.OnRecord(extract.Frame{}, nil)
	o.OnRecord(extract.Frame{}, nil)
	o.OnMissing(extract.Frame{}, errors.New("overrun"))
	o.OnSizeMismatch(extract.Frame{}, &extract.SizeMismatchError{Got: 3, Want: 8})
	o.OnMetadata(extract.Frame{}, "a1b2c3d")
	o.OnTrailing(5)

	assert.Equal(t, 2.0, testutil.ToFloat64(FramesTotal.WithLabelValues(source, OutcomeRecord)))
	assert.Equal(t, 1.0, testutil.ToFloat64(FramesTotal.WithLabelValues(source, OutcomeMissing)))
	assert.Equal(t, 1.0, testutil.ToFloat64(FramesTotal.WithLabelValues(source, OutcomeSizeMismatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(FramesTotal.WithLabelValues(source, OutcomeMetadata)))
	assert.Equal(t, 1.0, testutil.ToFloat64(BuildInfo.WithLabelValues(source, "a1b2c3d")))
	assert.Equal(t, 5.0, testutil.ToFloat64(TrailingBytesTotal.WithLabelValues(source)))
}

func TestObserverDuringExtract(t *testing.T) {
	const source = "extract-test.bin"
	// metadata "abcdefg", one 2-byte record, one overrun frame
	buf := []byte{
		0x08, 'a', 'b', 'c', 'd', 'e', 'f', 'g', 0x00,
		0x03, 0x11, 0x22, 0x00,
		0x05, 0x01, 0x00,
	}
	res, err := extract.Extract(buf, extract.Options{RecordSize: 2, Observer: NewObserver(source)})
	require.NoError(t, err)
	RecordStats(source, res.Stats)

	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(FramesTotal.WithLabelValues(source, OutcomeRecord)))
	assert.Equal(t, 1.0, testutil.ToFloat64(FramesTotal.WithLabelValues(source, OutcomeMissing)))
	assert.Equal(t, 1.0, testutil.ToFloat64(FramesTotal.WithLabelValues(source, OutcomeMetadata)))
	assert.Equal(t, float64(len(buf)), testutil.ToFloat64(BytesScannedTotal.WithLabelValues(source)))
}

func TestRecordStats(t *testing.T) {
	RecordStats("stats-test", core.Stats{BytesScanned: 4096})
	assert.Equal(t, 4096.0, testutil.ToFloat64(BytesScannedTotal.WithLabelValues("stats-test")))
}

func TestServerServesMetrics(t *testing.T) {
	CaptureBytesTotal.WithLabelValues("/dev/ttyTEST").Add(42)

	s := NewServer("127.0.0.1:0", "")
	require.NoError(t, s.Start(context.Background()))
	defer func() { assert.NoError(t, s.Stop(context.Background())) }()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `cobslog_capture_bytes_total{port="/dev/ttyTEST"} 42`)
}

func TestServerStartBadAddr(t *testing.T) {
	s := NewServer("256.0.0.1:bogus", "/metrics")
	assert.Error(t, s.Start(context.Background()))
}

func TestServerStopBeforeStart(t *testing.T) {
	assert.NoError(t, NewServer(":0", "/m").Stop(context.Background()))
}
