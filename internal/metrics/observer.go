package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/cobslog/internal/core/extract"
)

// Observer counts frame outcomes for one source.
type Observer struct {
	source       string
	records      prometheus.Counter
	missing      prometheus.Counter
	metadata     prometheus.Counter
	sizeMismatch prometheus.Counter
	trailing     prometheus.Counter
}

var _ extract.Observer = (*Observer)(nil)

// NewObserver binds the frame counters to source.
func NewObserver(source string) *Observer {
	return &Observer{
		source:       source,
		records:      FramesTotal.WithLabelValues(source, OutcomeRecord),
		missing:      FramesTotal.WithLabelValues(source, OutcomeMissing),
		metadata:     FramesTotal.WithLabelValues(source, OutcomeMetadata),
		sizeMismatch: FramesTotal.WithLabelValues(source, OutcomeSizeMismatch),
		trailing:     TrailingBytesTotal.WithLabelValues(source),
	}
}

func (o *Observer) OnRecord(extract.Frame, []byte) { o.records.Inc() }

func (o *Observer) OnMissing(extract.Frame, error) { o.missing.Inc() }

func (o *Observer) OnSizeMismatch(extract.Frame, *extract.SizeMismatchError) { o.sizeMismatch.Inc() }

func (o *Observer) OnMetadata(_ extract.Frame, text string) {
	o.metadata.Inc()
	BuildInfo.WithLabelValues(o.source, text).Set(1)
}

func (o *Observer) OnTrailing(n int) { o.trailing.Add(float64(n)) }
