package log

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	AppenderConsole = "console"
	AppenderStdout  = "stdout"
	AppenderFile    = "file"
)

type MultiWriter struct {
	writers []io.Writer
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		_, e := w.Write(p)
		if e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

// Len returns the number of attached writers.
func (m *MultiWriter) Len() int {
	return len(m.writers)
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

// AddAppender attaches the output described by cfg.
func (m *MultiWriter) AddAppender(cfg AppenderConfig) error {
	switch strings.ToLower(cfg.Type) {
	case AppenderConsole, "":
		m.Add(os.Stderr)
	case AppenderStdout:
		m.Add(os.Stdout)
	case AppenderFile:
		opt, err := decodeFileAppenderOpt(cfg.Options)
		if err != nil {
			return err
		}
		m.AddFileAppender(opt)
	default:
		return fmt.Errorf("unsupported appender type: %q", cfg.Type)
	}
	return nil
}
