package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-kokoro/internal/log"
	"github.com/teslashibe/go-kokoro/internal/observability"
)

// DefaultQueueSize is the pending queue capacity.
const DefaultQueueSize = 64

// State describes the playback state of the stream.
type State int

const (
	// StateIdle means nothing is being spoken.
	StateIdle State = iota
	// StateSpeaking means a message is being synthesized or played.
	StateSpeaking
	// StateInterrupted means playback was cut off by new speech input.
	StateInterrupted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// StateCallback receives playback state transitions.
type StateCallback func(State)

// OutputStream owns the queue of pending playback requests. Requests are
// synthesized and written to the sink strictly in enqueue order. Enqueue is
// safe for concurrent callers; playback itself is single-threaded.
type OutputStream struct {
	synth  Synthesizer
	sink   Sink
	queue  chan Request
	logger *slog.Logger

	mu            sync.Mutex
	running       bool
	done          chan struct{}
	cancelCurrent context.CancelFunc
	cb            StateCallback
}

// StreamOption configures an OutputStream.
type StreamOption func(*OutputStream)

// WithQueueSize overrides the pending queue capacity.
func WithQueueSize(n int) StreamOption {
	return func(s *OutputStream) {
		s.queue = make(chan Request, n)
	}
}

// NewOutputStream creates a stream that synthesizes with synth and plays
// through sink. A nil sink discards audio.
func NewOutputStream(synth Synthesizer, sink Sink, opts ...StreamOption) *OutputStream {
	if sink == nil {
		sink = Discard
	}
	s := &OutputStream{
		synth:  synth,
		sink:   sink,
		queue:  make(chan Request, DefaultQueueSize),
		logger: log.Component("audio.stream"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the playback worker. Starting a running stream is a no-op.
func (s *OutputStream) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.done = make(chan struct{})
	go s.worker(s.done)
}

// Stop halts the playback worker and cancels any in-flight synthesis.
// Queued requests are kept and resume on the next Start.
func (s *OutputStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.done)
	if s.cancelCurrent != nil {
		s.cancelCurrent()
	}
}

// AddRequest enqueues a playback request. Returns ErrQueueFull when the
// pending queue is at capacity; the message is dropped in that case.
func (s *OutputStream) AddRequest(req Request) error {
	select {
	case s.queue <- req:
		observability.SetQueueDepth(len(s.queue))
		return nil
	default:
		s.logger.Warn("pending queue full, dropping message", "text_len", len(req.Text))
		return ErrQueueFull
	}
}

// PendingCount returns the number of requests waiting for playback.
func (s *OutputStream) PendingCount() int {
	return len(s.queue)
}

// SetStateCallback registers cb for playback state transitions.
func (s *OutputStream) SetStateCallback(cb StateCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = cb
}

// Interrupt cancels the in-flight synthesis and drains the pending queue.
// Used when new speech input is detected during playback.
func (s *OutputStream) Interrupt() {
	s.mu.Lock()
	cancel := s.cancelCurrent
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	drained := 0
	for {
		select {
		case <-s.queue:
			drained++
		default:
			observability.SetQueueDepth(len(s.queue))
			observability.Interrupt()
			if drained > 0 {
				s.logger.Info("interrupted playback", "dropped", drained)
			}
			s.notify(StateInterrupted)
			return
		}
	}
}

func (s *OutputStream) worker(done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case req := <-s.queue:
			observability.SetQueueDepth(len(s.queue))
			s.process(req)
		}
	}
}

func (s *OutputStream) process(req Request) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancelCurrent = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancelCurrent = nil
		s.mu.Unlock()
	}()

	s.notify(StateSpeaking)

	start := time.Now()
	result, err := s.synth.Synthesize(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			observability.SynthesisError()
			s.logger.Error("synthesis failed", "error", err, "text_len", len(req.Text))
		}
		s.notify(StateIdle)
		return
	}
	observability.ObserveSynthesis(time.Since(start).Seconds())

	if err := s.sink.Write(result.Audio); err != nil {
		s.logger.Error("sink write failed", "error", err, "bytes", len(result.Audio))
	}

	s.notify(StateIdle)
}

func (s *OutputStream) notify(state State) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}
