package extract

import (
	"bytes"

	"github.com/sourcegraph/conc/iter"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/core/cobs"
)

// minShardLen keeps shards large enough to amortize goroutine overhead.
const minShardLen = 64 * 1024

type span struct {
	start, end int
}

type shardResult struct {
	result core.RunResult
	events []event
}

// Parallel splits buf at delimiter boundaries into up to shards pieces,
// extracts them concurrently and merges the results in stream order.
// The result and the sequence of observer calls are identical to Extract.
func (e *Extractor) Parallel(buf []byte, shards int) core.RunResult {
	return e.parallel(buf, shards, minShardLen)
}

func (e *Extractor) parallel(buf []byte, shards, minLen int) core.RunResult {
	spans := shardSpans(buf, shards, minLen)
	if len(spans) <= 1 {
		return e.Extract(buf)
	}

	_, observed := e.opts.Observer.(NopObserver)
	observed = !observed

	mapper := iter.Mapper[span, shardResult]{MaxGoroutines: len(spans)}
	results := mapper.Map(spans, func(s *span) shardResult {
		opts := e.opts
		rec := &recorder{}
		if observed {
			opts.Observer = rec
		} else {
			opts.Observer = NopObserver{}
		}
		acc := newAccumulator(opts, s.end-s.start)
		trailing, _ := walk(buf[s.start:s.end], s.start, func(f Frame) error {
			acc.frame(f)
			return nil
		})
		acc.trailing(trailing)
		acc.result.Stats.BytesScanned = s.end - s.start
		return shardResult{result: acc.result, events: rec.events}
	})

	return e.merge(results)
}

func (e *Extractor) merge(shards []shardResult) core.RunResult {
	size := 0
	for _, s := range shards {
		size += len(s.result.Records)
	}
	out := core.RunResult{
		RecordSize: e.opts.RecordSize,
		Records:    make([]byte, 0, size),
	}

	frameBase := 0
	for _, s := range shards {
		r := s.result
		duplicate := false
		if r.HasMetadata {
			if out.HasMetadata {
				duplicate = true
				r.Stats.SizeMismatches++
				r.Stats.DuplicateMetadata++
			} else {
				out.Metadata = r.Metadata
				out.HasMetadata = true
			}
		}
		out.Records = append(out.Records, r.Records...)
		out.ErrorCount += r.ErrorCount
		out.Stats.Add(r.Stats)

		for _, ev := range s.events {
			ev.frame.Index += frameBase
			if ev.kind == eventMetadata && duplicate {
				mismatch := &SizeMismatchError{
					Got:       e.opts.MetadataLen,
					Want:      e.opts.RecordSize,
					Duplicate: true,
				}
				ev = event{kind: eventSizeMismatch, frame: ev.frame, mismatch: mismatch}
			}
			ev.replay(e.opts.Observer)
		}
		frameBase += r.Stats.Frames
	}
	return out
}

// shardSpans cuts buf into at most n spans. Every span but the last ends just
// after a delimiter, so frames never straddle two spans.
func shardSpans(buf []byte, n, minLen int) []span {
	if n <= 1 || len(buf) < 2*minLen {
		return []span{{0, len(buf)}}
	}
	target := len(buf) / n
	if target < minLen {
		target = minLen
	}

	spans := make([]span, 0, n)
	start := 0
	for len(spans) < n-1 {
		cut := start + target
		if cut >= len(buf) {
			break
		}
		i := bytes.IndexByte(buf[cut:], cobs.Delimiter)
		if i < 0 {
			break
		}
		end := cut + i + 1
		spans = append(spans, span{start, end})
		start = end
	}
	if start < len(buf) || len(spans) == 0 {
		spans = append(spans, span{start, len(buf)})
	}
	return spans
}

type eventKind uint8

const (
	eventRecord eventKind = iota
	eventMissing
	eventSizeMismatch
	eventMetadata
	eventTrailing
)

type event struct {
	kind     eventKind
	frame    Frame
	payload  []byte
	err      error
	mismatch *SizeMismatchError
	text     string
	n        int
}

func (ev event) replay(o Observer) {
	switch ev.kind {
	case eventRecord:
		o.OnRecord(ev.frame, ev.payload)
	case eventMissing:
		o.OnMissing(ev.frame, ev.err)
	case eventSizeMismatch:
		o.OnSizeMismatch(ev.frame, ev.mismatch)
	case eventMetadata:
		o.OnMetadata(ev.frame, ev.text)
	case eventTrailing:
		o.OnTrailing(ev.n)
	}
}

// recorder buffers a shard's events for ordered replay.
type recorder struct {
	events []event
}

func (r *recorder) OnRecord(f Frame, payload []byte) {
	r.events = append(r.events, event{kind: eventRecord, frame: f, payload: append([]byte(nil), payload...)})
}

func (r *recorder) OnMissing(f Frame, err error) {
	r.events = append(r.events, event{kind: eventMissing, frame: f, err: err})
}

func (r *recorder) OnSizeMismatch(f Frame, err *SizeMismatchError) {
	r.events = append(r.events, event{kind: eventSizeMismatch, frame: f, mismatch: err})
}

func (r *recorder) OnMetadata(f Frame, text string) {
	r.events = append(r.events, event{kind: eventMetadata, frame: f, text: text})
}

func (r *recorder) OnTrailing(n int) {
	r.events = append(r.events, event{kind: eventTrailing, n: n})
}
