package extract

import (
	"time"

	"firestige.xyz/cobslog/internal/log"
)

// Observer receives per-frame outcomes in stream order.
// Frame.Data and payload are only valid for the duration of the call.
type Observer interface {
	OnRecord(f Frame, payload []byte)
	OnMissing(f Frame, err error)
	OnSizeMismatch(f Frame, err *SizeMismatchError)
	OnMetadata(f Frame, text string)
	OnTrailing(n int)
}

// NopObserver ignores everything. Embed it to implement a subset of Observer.
type NopObserver struct{}

func (NopObserver) OnRecord(Frame, []byte) {}
func (NopObserver) OnMissing(Frame, error) {}
func (NopObserver) OnSizeMismatch(Frame, *SizeMismatchError) {}
func (NopObserver) OnMetadata(Frame, string) {}
func (NopObserver) OnTrailing(int) {}

type multiObserver []Observer

// Observers fans every event out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	switch len(list) {
	case 0:
		return NopObserver{}
	case 1:
		return list[0]
	}
	return list
}

func (m multiObserver) OnRecord(f Frame, payload []byte) {
	for _, o := range m {
		o.OnRecord(f, payload)
	}
}

func (m multiObserver) OnMissing(f Frame, err error) {
	for _, o := range m {
		o.OnMissing(f, err)
	}
}

func (m multiObserver) OnSizeMismatch(f Frame, err *SizeMismatchError) {
	for _, o := range m {
		o.OnSizeMismatch(f, err)
	}
}

func (m multiObserver) OnMetadata(f Frame, text string) {
	for _, o := range m {
		o.OnMetadata(f, text)
	}
}

func (m multiObserver) OnTrailing(n int) {
	for _, o := range m {
		o.OnTrailing(n)
	}
}

// LogObserver writes frame diagnostics to a Logger.
// Decode failures are frequent on a noisy link and go to debug level.
// Per-frame lines pass through Limiter when it is set.
type LogObserver struct {
	NopObserver
	Logger  log.Logger
	Limiter *RateLimiter
}

// NewLogObserver returns a LogObserver tagged with the given source name.
func NewLogObserver(logger log.Logger, source string) *LogObserver {
	return &LogObserver{Logger: logger.WithField("source", source)}
}

func (o *LogObserver) OnMissing(f Frame, err error) {
	if !o.Logger.IsDebugEnabled() || !o.Limiter.Allow("missing", time.Now()) {
		return
	}
	o.Logger.WithFields(map[string]interface{}{
		"frame":  f.Index,
		"offset": f.Offset,
		"len":    f.Len(),
	}).WithError(err).Debug("frame decode failed, substituting missing record")
}

func (o *LogObserver) OnSizeMismatch(f Frame, err *SizeMismatchError) {
	if !o.Limiter.Allow("size_mismatch", time.Now()) {
		return
	}
	o.Logger.WithFields(map[string]interface{}{
		"frame":  f.Index,
		"offset": f.Offset,
	}).Warn(err.Error())
}

func (o *LogObserver) OnMetadata(f Frame, text string) {
	o.Logger.WithFields(map[string]interface{}{
		"frame":  f.Index,
		"offset": f.Offset,
	}).Infof("build identifier %q", text)
}

func (o *LogObserver) OnTrailing(n int) {
	o.Logger.WithField("bytes", n).Debug("ignoring unterminated trailing frame")
}
