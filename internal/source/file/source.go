// Package file reads captured serial logs from disk.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"firestige.xyz/cobslog/internal/core"
)

const Name = "file"

// Stdin is the path that selects standard input.
const Stdin = "-"

type Source struct {
	path string
	f    *os.File
}

func NewSource(path string) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}
	return &Source{path: path}, nil
}

// Name identifies the source in logs and metric labels.
func (s *Source) Name() string {
	if s.path == Stdin {
		return "stdin"
	}
	return s.path
}

func (s *Source) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.path == Stdin {
		s.f = os.Stdin
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", s.path, err)
	}
	s.f = f
	return nil
}

// Reader returns the open file for streaming.
func (s *Source) Reader(ctx context.Context) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.f == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrSourceNotOpen, s.Name())
	}
	return s.f, nil
}

// ReadAll loads the remaining content into memory.
func (s *Source) ReadAll(ctx context.Context) ([]byte, error) {
	r, err := s.Reader(ctx)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Name(), err)
	}
	return data, nil
}

func (s *Source) Stop() error {
	if s.f == nil {
		return nil
	}
	var err error
	if s.f != os.Stdin {
		err = s.f.Close()
	}
	s.f = nil
	return err
}
