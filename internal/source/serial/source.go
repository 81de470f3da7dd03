// Package serial captures the raw framed byte stream from a device port.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	goserial "go.bug.st/serial"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/metrics"
)

const Name = "serial"

const defaultReadTimeout = 300 * time.Millisecond

// Port is the subset of serial.Port used for capture.
type Port interface {
	io.ReadCloser
	SetReadTimeout(t time.Duration) error
}

// OpenFunc opens a named port.
type OpenFunc func(name string, mode *goserial.Mode) (Port, error)

func openPort(name string, mode *goserial.Mode) (Port, error) {
	return goserial.Open(name, mode)
}

// Ports lists the serial ports present on this host.
func Ports() ([]string, error) {
	ports, err := goserial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration // 0 = 300ms
}

type Source struct {
	cfg  Config
	open OpenFunc

	mu   sync.Mutex
	port Port
}

func NewSource(cfg Config) *Source {
	return NewSourceWithOpener(cfg, openPort)
}

// NewSourceWithOpener is NewSource with a custom port opener.
func NewSourceWithOpener(cfg Config, open OpenFunc) *Source {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &Source{cfg: cfg, open: open}
}

// Name identifies the source in logs and metric labels.
func (s *Source) Name() string {
	return s.cfg.Port
}

func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Port == "" {
		return errors.New("serial port is empty")
	}
	if s.cfg.Baud <= 0 {
		return fmt.Errorf("invalid serial baud rate: %d", s.cfg.Baud)
	}

	port, err := s.open(s.cfg.Port, &goserial.Mode{BaudRate: s.cfg.Baud})
	if err != nil {
		return fmt.Errorf("open serial port %q: %w", s.cfg.Port, err)
	}
	if err := port.SetReadTimeout(s.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set serial read timeout: %w", err)
	}
	s.port = port

	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// Reader returns a stream over the open port that ends with io.EOF once ctx
// is done. Read timeouts with no data are retried.
func (s *Source) Reader(ctx context.Context) (io.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrSourceNotOpen, s.cfg.Port)
	}
	return &portReader{
		ctx:     ctx,
		port:    s.port,
		counter: metrics.CaptureBytesTotal.WithLabelValues(s.cfg.Port),
	}, nil
}

type portReader struct {
	ctx     context.Context
	port    Port
	counter interface{ Add(float64) }
}

func (r *portReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if r.ctx.Err() != nil {
			return 0, io.EOF
		}
		n, err := r.port.Read(p)
		if n > 0 {
			r.counter.Add(float64(n))
			return n, nil
		}
		if err != nil {
			return 0, err
		}
	}
}
