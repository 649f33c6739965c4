// Package tts provides the shared text-to-speech provider: the single owner
// of the synthesis backend stream and its queue of pending messages.
//
// The provider is an explicitly constructed object injected into every
// connector that needs it; the process is expected to hold exactly one for a
// given speaker. Enqueue is safe for concurrent callers, and Configure is
// expected to be infrequent.
//
// Example usage:
//
//	provider, _ := tts.New(
//	    tts.WithVoice("af_bella"),
//	    tts.WithAPIKey(os.Getenv("OM_API_KEY")),
//	)
//	provider.Start()
//	defer provider.Stop()
//
//	provider.AddText("Hello there")
package tts

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/go-kokoro/internal/log"
	"github.com/teslashibe/go-kokoro/pkg/audio"
)

// Sink aliases the audio sink so callers wiring a provider do not need to
// import pkg/audio directly.
type Sink = audio.Sink

// StateCallback receives playback state transitions from the backend stream.
type StateCallback = audio.StateCallback

// Stream abstracts the backend audio output stream the provider owns.
// pkg/audio.OutputStream is the production implementation.
type Stream interface {
	Start()
	Stop()
	AddRequest(audio.Request) error
	PendingCount() int
	SetStateCallback(audio.StateCallback)
}

// StreamFactory builds a backend stream for a configuration. Construction
// failures propagate to the caller of New or Configure.
type StreamFactory func(Config) (Stream, error)

// settings collects construction-time options.
type settings struct {
	cfg       Config
	sink      Sink
	factory   StreamFactory
	streaming bool
}

// Provider wraps the backend stream with configure/start/stop semantics and
// pending-message bookkeeping.
type Provider struct {
	logger *slog.Logger

	mu      sync.Mutex
	cfg     Config
	running bool
	stream  Stream
	factory StreamFactory
	cb      audio.StateCallback
}

// New creates a provider. Without options it targets a local Kokoro backend
// with the default voice and discards synthesized audio.
func New(opts ...Option) (*Provider, error) {
	s := settings{
		cfg:  DefaultConfig(),
		sink: audio.Discard,
	}
	for _, opt := range opts {
		opt(&s)
	}

	if s.factory == nil {
		sink := s.sink
		streaming := s.streaming
		s.factory = func(cfg Config) (Stream, error) {
			var synth audio.Synthesizer
			if streaming {
				synth = audio.NewWSSynthesizer(cfg.URL, cfg.APIKey, cfg.SampleRate)
			} else {
				synth = audio.NewHTTPSynthesizer(cfg.URL, cfg.APIKey, cfg.SampleRate)
			}
			return audio.NewOutputStream(synth, sink), nil
		}
	}

	stream, err := s.factory(s.cfg)
	if err != nil {
		return nil, err
	}

	return &Provider{
		logger:  log.Component("tts.provider"),
		cfg:     s.cfg,
		stream:  stream,
		factory: s.factory,
	}, nil
}

// Configure applies cfg. When cfg matches the active configuration this is a
// no-op. Otherwise the stream is stopped if running, replaced with one built
// for cfg, and restarted if it was running before.
func (p *Provider) Configure(cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.Equal(cfg) {
		return nil
	}

	wasRunning := p.running
	if wasRunning {
		p.stopLocked()
	}

	stream, err := p.factory(cfg)
	if err != nil {
		return err
	}

	p.cfg = cfg
	p.stream = stream
	if p.cb != nil {
		p.stream.SetStateCallback(p.cb)
	}

	if wasRunning {
		p.startLocked()
	}
	return nil
}

// Start marks the provider running and starts the backend stream.
// Starting a running provider logs a warning and does nothing.
func (p *Provider) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.logger.Warn("provider is already running")
		return
	}
	p.startLocked()
}

func (p *Provider) startLocked() {
	p.running = true
	p.stream.Start()
}

// Stop stops the backend stream. Stopping a stopped provider logs a warning
// and does nothing.
func (p *Provider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		p.logger.Warn("provider is not running")
		return
	}
	p.stopLocked()
}

func (p *Provider) stopLocked() {
	p.running = false
	p.stream.Stop()
}

// Running reports whether the provider is started.
func (p *Provider) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Config returns the active configuration.
func (p *Provider) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// CreatePendingMessage builds a pending message from the active
// configuration. It has no side effects.
func (p *Provider) CreatePendingMessage(text string) PendingMessage {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()

	return PendingMessage{
		Text:         text,
		VoiceID:      cfg.VoiceID,
		ModelID:      cfg.ModelID,
		OutputFormat: cfg.OutputFormat,
	}
}

// AddPendingMessage enqueues msg for playback. When the provider is not
// running the message is dropped with a warning; speech is best-effort.
func (p *Provider) AddPendingMessage(msg PendingMessage) {
	p.mu.Lock()
	running := p.running
	stream := p.stream
	p.mu.Unlock()

	if !running {
		p.logger.Warn("provider not running, dropping message", "text_len", len(msg.Text))
		return
	}

	p.logger.Info("queueing pending message", "text", msg.Text, "voice", msg.VoiceID)
	if err := stream.AddRequest(audio.Request{
		Text:         msg.Text,
		VoiceID:      msg.VoiceID,
		ModelID:      msg.ModelID,
		OutputFormat: msg.OutputFormat,
	}); err != nil {
		p.logger.Warn("enqueue failed", "error", err)
	}
}

// AddText converts text into a pending message and enqueues it.
func (p *Provider) AddText(text string) {
	p.AddPendingMessage(p.CreatePendingMessage(text))
}

// PendingMessageCount returns the backend queue depth.
func (p *Provider) PendingMessageCount() int {
	p.mu.Lock()
	stream := p.stream
	p.mu.Unlock()
	return stream.PendingCount()
}

// Interrupter is implemented by streams that can cut off in-flight playback.
type Interrupter interface {
	Interrupt()
}

// Interrupt cuts off current playback and drains the pending queue. It is a
// no-op unless EnableInterrupt is configured and the backend stream supports
// interruption.
func (p *Provider) Interrupt() {
	p.mu.Lock()
	enabled := p.cfg.EnableInterrupt
	stream := p.stream
	p.mu.Unlock()

	if !enabled {
		return
	}
	if i, ok := stream.(Interrupter); ok {
		i.Interrupt()
	}
}

// RegisterStateCallback registers cb with the backend stream to observe
// playback state transitions. A nil callback is ignored. The callback
// survives reconfiguration.
func (p *Provider) RegisterStateCallback(cb StateCallback) {
	if cb == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cb = cb
	p.stream.SetStateCallback(cb)
}
