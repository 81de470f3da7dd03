package pipeline

import (
	"io"

	"firestige.xyz/cobslog/internal/core/extract"
	"firestige.xyz/cobslog/internal/layout"
	"firestige.xyz/cobslog/internal/log"
	"firestige.xyz/cobslog/internal/sink"
)

// Builder provides a fluent interface for building pipelines.
// This is an alternative to using Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithSource sets the byte source.
func (b *Builder) WithSource(s Source) *Builder {
	b.config.Source = s
	return b
}

// WithOptions sets the extraction options.
func (b *Builder) WithOptions(opts extract.Options) *Builder {
	b.config.Options = opts
	return b
}

// WithDecoder sets the record layout decoder.
func (b *Builder) WithDecoder(d *layout.Decoder) *Builder {
	b.config.Decoder = d
	return b
}

// WithMode sets the scan mode.
func (b *Builder) WithMode(m Mode) *Builder {
	b.config.Mode = m
	return b
}

// WithShards sets the parallel shard count.
func (b *Builder) WithShards(n int) *Builder {
	b.config.Shards = n
	return b
}

// WithSinks appends sinks.
func (b *Builder) WithSinks(sinks ...sink.Sink) *Builder {
	b.config.Sinks = append(b.config.Sinks, sinks...)
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(l log.Logger) *Builder {
	b.config.Logger = l
	return b
}

// WithMetrics enables Prometheus counters.
func (b *Builder) WithMetrics(enabled bool) *Builder {
	b.config.Metrics = enabled
	return b
}

// WithTee copies the raw input to w.
func (b *Builder) WithTee(w io.Writer) *Builder {
	b.config.Tee = w
	return b
}

// WithLive makes cancellation a normal end of input.
func (b *Builder) WithLive(live bool) *Builder {
	b.config.Live = live
	return b
}

// WithLogLimit bounds per-frame log lines.
func (b *Builder) WithLogLimit(cfg extract.RateLimiterConfig) *Builder {
	b.config.LogLimit = cfg
	return b
}

// Build creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	return New(b.config)
}
