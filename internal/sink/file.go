package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// FileSink appends events as JSON lines, optionally zstd-compressed.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	zw     *zstd.Encoder
	buf    *bufio.Writer
	enc    *json.Encoder
	closed bool
}

// NewFileSink creates path (and its directory). With compress the stream is zstd-framed.
func NewFileSink(path string, compress bool) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sink dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create sink file: %w", err)
	}

	s := &FileSink{file: f}
	var w io.Writer = f
	if compress {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		s.zw = zw
		w = zw
	}
	s.buf = bufio.NewWriter(w)
	s.enc = json.NewEncoder(s.buf)
	return s, nil
}

// Publish implements Sink.
func (s *FileSink) Publish(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("file sink closed")
	}
	if err := s.enc.Encode(ev); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return s.buf.Flush()
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.buf.Flush()
	if s.zw != nil {
		if cerr := s.zw.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadEvents decodes a file written by FileSink.
func ReadEvents(path string, compressed bool) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var events []Event
	dec := json.NewDecoder(r)
	for dec.More() {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			return events, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
