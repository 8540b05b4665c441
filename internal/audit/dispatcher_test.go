package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type collectSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sink := &collectSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		d.Emit(ctx, Event{ID: "e", EventType: "login"})
	}
	d.Close()

	if got := sink.count(); got != 10 {
		t.Fatalf("expected 10 delivered events after Close, got %d", got)
	}
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &collectSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}

	// All methods are nil-safe.
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero dropped on nil dispatcher")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingSink{release: block, started: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer d.Close()
	defer close(block)

	ctx := context.Background()
	d.Emit(ctx, Event{})
	<-sink.started // worker is now stuck inside Emit

	d.Emit(ctx, Event{}) // fills the buffer
	for i := 0; i < 5; i++ {
		d.Emit(ctx, Event{})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}
}

type blockingSink struct {
	release   chan struct{}
	started   chan struct{}
	startOnce sync.Once
}

func (s *blockingSink) Emit(context.Context, Event) {
	s.startOnce.Do(func() { close(s.started) })
	<-s.release
}

func TestDispatcherEmitAfterClose(t *testing.T) {
	sink := &collectSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()

	d.Emit(context.Background(), Event{EventType: "late"})
	time.Sleep(10 * time.Millisecond)
	if got := sink.count(); got != 0 {
		t.Fatalf("expected no delivery after Close, got %d", got)
	}
}

func TestJSONWriterSinkOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{ID: "1", EventType: "login", Success: true})
	sink.Emit(context.Background(), Event{ID: "2", EventType: "logout", Success: true})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			t.Fatalf("line %q not valid JSON: %v", line, err)
		}
	}
}
