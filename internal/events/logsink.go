package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink consumes events from the router.
type Sink interface {
	Start(ctx context.Context, events <-chan Event) error
	Stop() error
}

// LogSink writes every run event to a JSON lines trace file.
type LogSink struct {
	path    string
	file    *os.File
	encoder *json.Encoder
	written int
	mu      sync.Mutex
	done    chan struct{}
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a new LogSink that writes to the specified path.
func NewLogSink(path string) *LogSink {
	return &LogSink{
		path: path,
		done: make(chan struct{}),
	}
}

// Start opens the trace file and begins writing events. It runs until the
// context is canceled or the events channel is closed; on cancellation the
// events already buffered in the channel are still written.
func (s *LogSink) Start(ctx context.Context, events <-chan Event) error {
	if err := s.openFile(); err != nil {
		return err
	}

	go s.run(ctx, events)
	return nil
}

func (s *LogSink) openFile() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create trace directory: %w", err)
	}

	if err := s.rotateExisting(); err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}

	s.mu.Lock()
	s.file = file
	s.encoder = json.NewEncoder(file)
	s.mu.Unlock()

	return nil
}

// rotateExisting moves a non-empty trace from a previous run aside so each
// file holds exactly one run.
func (s *LogSink) rotateExisting() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat trace file: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}

	timestamp := time.Now().Format("2006-01-02T15-04-05.000")
	bakPath := fmt.Sprintf("%s.%s.bak", s.path, timestamp)
	if err := os.Rename(s.path, bakPath); err != nil {
		return fmt.Errorf("rotate trace file: %w", err)
	}
	return nil
}

func (s *LogSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.drain(events)
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.write(event)
		}
	}
}

func (s *LogSink) drain(events <-chan Event) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			s.write(event)
		default:
			return
		}
	}
}

func (s *LogSink) write(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encoder == nil {
		return
	}

	if err := s.encoder.Encode(event); err != nil {
		fmt.Fprintf(os.Stderr, "trace sink: failed to write event: %v\n", err)
		return
	}
	s.written++
}

// Stop waits for the writer goroutine and closes the trace file.
func (s *LogSink) Stop() error {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		s.encoder = nil
		return err
	}
	return nil
}

// Written returns the number of events written so far.
func (s *LogSink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Path returns the trace file path.
func (s *LogSink) Path() string {
	return s.path
}
