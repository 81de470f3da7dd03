// Package pipeline runs one extraction from a byte source to a set of sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/core/extract"
	"firestige.xyz/cobslog/internal/layout"
	"firestige.xyz/cobslog/internal/log"
	"firestige.xyz/cobslog/internal/metrics"
	"firestige.xyz/cobslog/internal/sink"
)

// Mode selects how the input is scanned.
type Mode string

const (
	ModeSequential Mode = "sequential" // load whole input, single pass
	ModeParallel   Mode = "parallel"   // load whole input, sharded
	ModeStream     Mode = "stream"     // scan frames as they are read
)

// Source supplies the framed byte stream.
type Source interface {
	Name() string
	Start(ctx context.Context) error
	Reader(ctx context.Context) (io.Reader, error)
	Stop() error
}

// Config contains pipeline configuration.
type Config struct {
	Source  Source
	Options extract.Options // RecordSize 0 = size of Decoder's layout
	Decoder *layout.Decoder
	Mode    Mode // "" = sequential, or parallel when Shards > 1
	Shards  int
	Sinks   []sink.Sink
	Logger  log.Logger // nil = log.GetLogger()
	Metrics bool
	Tee     io.Writer // receives a copy of every input byte
	Live    bool      // cancellation ends the run normally with a partial result

	LogLimit extract.RateLimiterConfig // bounds per-frame log lines, zero = unlimited
}

// Pipeline represents one configured extraction run.
type Pipeline struct {
	cfg       Config
	extractor *extract.Extractor
	logger    log.Logger
	limiter   *extract.RateLimiter
}

// New validates cfg and wires the diagnostics observers.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: no source", core.ErrInvalidOptions)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}
	logger := cfg.Logger.WithField("source", cfg.Source.Name())

	opts := cfg.Options
	if cfg.Decoder != nil {
		size := cfg.Decoder.Layout().Size()
		if opts.RecordSize == 0 {
			opts.RecordSize = size
		} else if opts.RecordSize != size {
			return nil, fmt.Errorf("%w: record size %d does not match layout %q (%d bytes)",
				core.ErrInvalidOptions, opts.RecordSize, cfg.Decoder.Layout().Name, size)
		}
	}

	if cfg.Mode == "" {
		cfg.Mode = ModeSequential
		if cfg.Shards > 1 {
			cfg.Mode = ModeParallel
		}
	}
	switch cfg.Mode {
	case ModeSequential, ModeStream:
	case ModeParallel:
		if cfg.Shards < 1 {
			cfg.Shards = 1
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", core.ErrInvalidOptions, cfg.Mode)
	}

	limiter := extract.NewRateLimiter(cfg.LogLimit)
	observers := []extract.Observer{opts.Observer, &extract.LogObserver{Logger: logger, Limiter: limiter}}
	if cfg.Metrics {
		observers = append(observers, metrics.NewObserver(cfg.Source.Name()))
	}
	opts.Observer = extract.Observers(observers...)

	e, err := extract.New(opts)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, extractor: e, logger: logger, limiter: limiter}, nil
}

// Mode returns the effective scan mode.
func (p *Pipeline) Mode() Mode { return p.cfg.Mode }

// Run starts the source, extracts, and sends the report to every sink.
// The report is returned even when a sink fails.
func (p *Pipeline) Run(ctx context.Context) (*sink.Report, error) {
	p.logger.WithFields(map[string]interface{}{
		"mode":        string(p.cfg.Mode),
		"record_size": p.extractor.Options().RecordSize,
	}).Info("pipeline starting")

	if err := p.cfg.Source.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := p.cfg.Source.Stop(); err != nil {
			p.logger.WithError(err).Error("source stop failed")
		}
	}()

	r, err := p.cfg.Source.Reader(ctx)
	if err != nil {
		return nil, err
	}
	if p.cfg.Tee != nil {
		r = io.TeeReader(r, p.cfg.Tee)
	}

	start := time.Now()
	res, err := p.extract(ctx, r)
	elapsed := time.Since(start)
	if err != nil && p.cfg.Live && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		p.logger.Info("capture stopped")
		err = nil
	}
	p.observeRun(res, elapsed, err)
	if err != nil {
		return nil, err
	}

	report := &sink.Report{
		Source:  p.cfg.Source.Name(),
		Mode:    string(p.cfg.Mode),
		Result:  res,
		Decoder: p.cfg.Decoder,
		Elapsed: elapsed,
	}

	var errs []error
	for _, s := range p.cfg.Sinks {
		if err := s.Send(report); err != nil {
			p.logger.WithError(err).WithField("sink", s.Name()).Error("sink failed")
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return report, errors.Join(errs...)
}

// Close closes every sink.
func (p *Pipeline) Close() error {
	var errs []error
	for _, s := range p.cfg.Sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) extract(ctx context.Context, r io.Reader) (core.RunResult, error) {
	if p.cfg.Mode == ModeStream {
		return p.extractor.ExtractReader(ctx, r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return core.RunResult{}, fmt.Errorf("failed to read %s: %w", p.cfg.Source.Name(), err)
	}
	if err := ctx.Err(); err != nil && !p.cfg.Live {
		return core.RunResult{}, err
	}
	if p.cfg.Mode == ModeParallel {
		return p.extractor.Parallel(data, p.cfg.Shards), nil
	}
	return p.extractor.Extract(data), nil
}

func (p *Pipeline) observeRun(res core.RunResult, elapsed time.Duration, err error) {
	if p.cfg.Metrics {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.RunsTotal.WithLabelValues(string(p.cfg.Mode), result).Inc()
		metrics.RunDurationSeconds.WithLabelValues(string(p.cfg.Mode)).Observe(elapsed.Seconds())
		metrics.RecordStats(p.cfg.Source.Name(), res.Stats)
	}
	if err != nil {
		p.logger.WithError(err).Error("extraction failed")
		return
	}
	if n := p.limiter.Suppressed(); n > 0 {
		p.logger.WithField("suppressed", n).Warn("per-frame diagnostics were rate limited")
	}
	p.logger.WithFields(map[string]interface{}{
		"records":  res.RecordCount(),
		"errors":   res.ErrorCount,
		"frames":   res.Stats.Frames,
		"elapsed":  elapsed.String(),
		"metadata": res.Metadata,
	}).Info("extraction finished")
}
