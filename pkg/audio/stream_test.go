package audio_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-kokoro/pkg/audio"
)

// fakeSynth records requests in order and returns canned audio.
type fakeSynth struct {
	mu    sync.Mutex
	texts []string
	delay time.Duration
	block chan struct{} // when set, Synthesize waits for ctx or block
}

func (f *fakeSynth) Synthesize(ctx context.Context, req audio.Request) (*audio.Result, error) {
	f.mu.Lock()
	f.texts = append(f.texts, req.Text)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &audio.Result{Audio: []byte(req.Text), SampleRate: 24000}, nil
}

func (f *fakeSynth) Close() error { return nil }

func (f *fakeSynth) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestOutputStreamFIFO(t *testing.T) {
	synth := &fakeSynth{}
	sink := &audio.BufferSink{}
	stream := audio.NewOutputStream(synth, sink)
	stream.Start()
	defer stream.Stop()

	for _, text := range []string{"first", "second", "third"} {
		if err := stream.AddRequest(audio.Request{Text: text}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	waitFor(t, func() bool { return sink.Len() == 3 })

	got := synth.seen()
	if strings.Join(got, ",") != "first,second,third" {
		t.Errorf("expected FIFO order, got %v", got)
	}

	chunks := sink.Chunks()
	if string(chunks[0]) != "first" || string(chunks[2]) != "third" {
		t.Errorf("sink received wrong audio: %q", chunks)
	}
}

func TestOutputStreamPendingCount(t *testing.T) {
	synth := &fakeSynth{}
	stream := audio.NewOutputStream(synth, nil)
	// Not started: requests accumulate.

	for i := 0; i < 3; i++ {
		if err := stream.AddRequest(audio.Request{Text: "x"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := stream.PendingCount(); got != 3 {
		t.Errorf("expected 3 pending, got %d", got)
	}
}

func TestOutputStreamQueueFull(t *testing.T) {
	synth := &fakeSynth{}
	stream := audio.NewOutputStream(synth, nil, audio.WithQueueSize(1))

	if err := stream.AddRequest(audio.Request{Text: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := stream.AddRequest(audio.Request{Text: "b"}); err != audio.ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if got := stream.PendingCount(); got != 1 {
		t.Errorf("expected 1 pending, got %d", got)
	}
}

func TestOutputStreamStateCallbacks(t *testing.T) {
	synth := &fakeSynth{}
	stream := audio.NewOutputStream(synth, nil)

	var mu sync.Mutex
	var states []audio.State
	stream.SetStateCallback(func(s audio.State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	stream.Start()
	defer stream.Stop()

	stream.AddRequest(audio.Request{Text: "hello"})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) >= 2
	})

	mu.Lock()
	defer mu.Unlock()
	if states[0] != audio.StateSpeaking {
		t.Errorf("expected speaking first, got %v", states[0])
	}
	if states[1] != audio.StateIdle {
		t.Errorf("expected idle second, got %v", states[1])
	}
}

func TestOutputStreamInterrupt(t *testing.T) {
	synth := &fakeSynth{block: make(chan struct{})}
	stream := audio.NewOutputStream(synth, nil)
	stream.Start()
	defer stream.Stop()

	stream.AddRequest(audio.Request{Text: "in flight"})
	waitFor(t, func() bool { return len(synth.seen()) == 1 })

	// Pile up messages behind the blocked one.
	stream.AddRequest(audio.Request{Text: "queued 1"})
	stream.AddRequest(audio.Request{Text: "queued 2"})

	var mu sync.Mutex
	var states []audio.State
	stream.SetStateCallback(func(s audio.State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	stream.Interrupt()

	waitFor(t, func() bool { return stream.PendingCount() == 0 })

	mu.Lock()
	sawInterrupted := false
	for _, s := range states {
		if s == audio.StateInterrupted {
			sawInterrupted = true
		}
	}
	mu.Unlock()
	if !sawInterrupted {
		t.Error("expected interrupted state callback")
	}

	// The stream keeps working after an interrupt.
	sink := &audio.BufferSink{}
	stream2 := audio.NewOutputStream(&fakeSynth{}, sink)
	stream2.Start()
	defer stream2.Stop()
	stream2.AddRequest(audio.Request{Text: "after"})
	waitFor(t, func() bool { return sink.Len() == 1 })
}

func TestOutputStreamStartStopIdempotent(t *testing.T) {
	stream := audio.NewOutputStream(&fakeSynth{}, nil)

	stream.Start()
	stream.Start() // no-op
	stream.Stop()
	stream.Stop() // no-op

	// Restart works.
	synth := &fakeSynth{}
	sink := &audio.BufferSink{}
	s2 := audio.NewOutputStream(synth, sink)
	s2.Start()
	s2.Stop()
	s2.AddRequest(audio.Request{Text: "while stopped"})
	if got := s2.PendingCount(); got != 1 {
		t.Fatalf("expected request to stay queued, got %d pending", got)
	}
	s2.Start()
	defer s2.Stop()
	waitFor(t, func() bool { return sink.Len() == 1 })
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state audio.State
		want  string
	}{
		{audio.StateIdle, "idle"},
		{audio.StateSpeaking, "speaking"},
		{audio.StateInterrupted, "interrupted"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}
