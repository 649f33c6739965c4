package tts_test

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-kokoro/pkg/audio"
	"github.com/teslashibe/go-kokoro/pkg/tts"
)

// fakeStream records requests and lifecycle calls.
type fakeStream struct {
	started  int
	stopped  int
	requests []audio.Request
	cb       audio.StateCallback
}

func (f *fakeStream) Start() { f.started++ }
func (f *fakeStream) Stop()  { f.stopped++ }
func (f *fakeStream) AddRequest(req audio.Request) error {
	f.requests = append(f.requests, req)
	return nil
}
func (f *fakeStream) PendingCount() int                       { return len(f.requests) }
func (f *fakeStream) SetStateCallback(cb audio.StateCallback) { f.cb = cb }

// newTestProvider returns a provider whose factory hands out fresh
// fakeStreams and records every construction.
func newTestProvider(t *testing.T, opts ...tts.Option) (*tts.Provider, *[]*fakeStream) {
	t.Helper()

	var streams []*fakeStream
	factory := func(cfg tts.Config) (tts.Stream, error) {
		s := &fakeStream{}
		streams = append(streams, s)
		return s, nil
	}

	opts = append(opts, tts.WithStreamFactory(factory))
	p, err := tts.New(opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p, &streams
}

func TestDefaults(t *testing.T) {
	p, _ := newTestProvider(t)

	cfg := p.Config()
	if cfg.URL != "http://127.0.0.1:8880/v1" {
		t.Errorf("unexpected url: %s", cfg.URL)
	}
	if cfg.VoiceID != "af_bella" || cfg.ModelID != "kokoro" {
		t.Errorf("unexpected voice/model: %s/%s", cfg.VoiceID, cfg.ModelID)
	}
	if cfg.OutputFormat != "pcm" || cfg.SampleRate != 24000 {
		t.Errorf("unexpected format/rate: %s/%d", cfg.OutputFormat, cfg.SampleRate)
	}
	if cfg.EnableInterrupt {
		t.Error("interrupt should default to false")
	}
	if p.Running() {
		t.Error("provider should not be running at construction")
	}
}

func TestConfigureIdentical(t *testing.T) {
	p, streams := newTestProvider(t)
	p.Start()

	if err := p.Configure(p.Config()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No new stream was built and the original was not restarted.
	if len(*streams) != 1 {
		t.Errorf("expected 1 stream, got %d", len(*streams))
	}
	if (*streams)[0].stopped != 0 {
		t.Error("identical configure must not stop the stream")
	}
}

func TestConfigureRestartsOnAnyFieldChange(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*tts.Config)
	}{
		{"url", func(c *tts.Config) { c.URL = "http://other:9000/v1" }},
		{"api key", func(c *tts.Config) { c.APIKey = "new-key" }},
		{"voice", func(c *tts.Config) { c.VoiceID = "am_adam" }},
		{"model", func(c *tts.Config) { c.ModelID = "kokoro-v2" }},
		{"format", func(c *tts.Config) { c.OutputFormat = "wav" }},
		{"rate", func(c *tts.Config) { c.SampleRate = 48000 }},
		{"interrupt", func(c *tts.Config) { c.EnableInterrupt = true }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			p, streams := newTestProvider(t)
			p.Start()

			cfg := p.Config()
			tt.mutate(&cfg)

			if err := p.Configure(cfg); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(*streams) != 2 {
				t.Fatalf("expected a new stream, got %d", len(*streams))
			}
			if (*streams)[0].stopped != 1 {
				t.Error("old stream was not stopped")
			}
			if (*streams)[1].started != 1 {
				t.Error("new stream was not started")
			}
			if !p.Running() {
				t.Error("provider should still be running")
			}
			if !p.Config().Equal(cfg) {
				t.Error("active configuration does not reflect cfg")
			}
		})
	}
}

func TestConfigureWhileStopped(t *testing.T) {
	p, streams := newTestProvider(t)

	cfg := p.Config()
	cfg.VoiceID = "am_adam"
	if err := p.Configure(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*streams) != 2 {
		t.Fatalf("expected a new stream, got %d", len(*streams))
	}
	if (*streams)[1].started != 0 {
		t.Error("stream must not start when the provider was stopped")
	}
	if p.Running() {
		t.Error("provider should remain stopped")
	}
	if p.Config().VoiceID != "am_adam" {
		t.Errorf("configuration not applied: %s", p.Config().VoiceID)
	}
}

func TestAddPendingMessageWhileStopped(t *testing.T) {
	p, streams := newTestProvider(t)

	p.AddPendingMessage(p.CreatePendingMessage("dropped"))

	if got := (*streams)[0].requests; len(got) != 0 {
		t.Errorf("expected no requests, got %v", got)
	}
	if p.PendingMessageCount() != 0 {
		t.Errorf("expected empty queue, got %d", p.PendingMessageCount())
	}
}

func TestAddPendingMessageCarriesConfiguration(t *testing.T) {
	p, streams := newTestProvider(t,
		tts.WithVoice("am_adam"),
		tts.WithModel("kokoro-v2"),
		tts.WithOutputFormat("wav"),
	)
	p.Start()

	p.AddText("good morning")

	reqs := (*streams)[0].requests
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.Text != "good morning" {
		t.Errorf("unexpected text: %s", req.Text)
	}
	if req.VoiceID != "am_adam" || req.ModelID != "kokoro-v2" || req.OutputFormat != "wav" {
		t.Errorf("request does not carry configuration: %+v", req)
	}
}

func TestPendingMessageRoundTrip(t *testing.T) {
	p, streams := newTestProvider(t)
	p.Start()

	msg := p.CreatePendingMessage("round trip")
	p.AddPendingMessage(msg)

	reqs := (*streams)[0].requests
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	got := reqs[0]
	if got.Text != msg.Text || got.VoiceID != msg.VoiceID ||
		got.ModelID != msg.ModelID || got.OutputFormat != msg.OutputFormat {
		t.Errorf("enqueued request differs from created message: %+v vs %+v", got, msg)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	p, streams := newTestProvider(t)

	p.Start()
	p.Start() // warning, no-op
	if (*streams)[0].started != 1 {
		t.Errorf("expected 1 start, got %d", (*streams)[0].started)
	}

	p.Stop()
	p.Stop() // warning, no-op
	if (*streams)[0].stopped != 1 {
		t.Errorf("expected 1 stop, got %d", (*streams)[0].stopped)
	}
}

func TestRegisterStateCallback(t *testing.T) {
	p, streams := newTestProvider(t)

	p.RegisterStateCallback(nil)
	if (*streams)[0].cb != nil {
		t.Error("nil callback must not be registered")
	}

	called := false
	p.RegisterStateCallback(func(audio.State) { called = true })
	if (*streams)[0].cb == nil {
		t.Fatal("callback was not registered")
	}

	// The callback carries over to the replacement stream on reconfigure.
	cfg := p.Config()
	cfg.VoiceID = "am_adam"
	if err := p.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if (*streams)[1].cb == nil {
		t.Fatal("callback lost across reconfigure")
	}
	(*streams)[1].cb(audio.StateSpeaking)
	if !called {
		t.Error("registered callback was not invoked")
	}
}

func TestStreamFactoryErrorPropagates(t *testing.T) {
	boom := errors.New("backend unavailable")

	_, err := tts.New(tts.WithStreamFactory(func(tts.Config) (tts.Stream, error) {
		return nil, boom
	}))
	if !errors.Is(err, boom) {
		t.Errorf("expected construction error, got %v", err)
	}
}

func TestConfigureErrorKeepsOldConfiguration(t *testing.T) {
	boom := errors.New("backend unavailable")
	calls := 0

	p, err := tts.New(tts.WithStreamFactory(func(cfg tts.Config) (tts.Stream, error) {
		calls++
		if calls > 1 {
			return nil, boom
		}
		return &fakeStream{}, nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	old := p.Config()
	cfg := old
	cfg.VoiceID = "am_adam"

	if err := p.Configure(cfg); !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}
	if !p.Config().Equal(old) {
		t.Error("failed configure must not change the active configuration")
	}
}

// interruptibleStream adds interruption support to fakeStream.
type interruptibleStream struct {
	fakeStream
	interrupts int
}

func (f *interruptibleStream) Interrupt() { f.interrupts++ }

func TestInterrupt(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		s := &interruptibleStream{}
		p, err := tts.New(tts.WithStreamFactory(func(tts.Config) (tts.Stream, error) {
			return s, nil
		}))
		if err != nil {
			t.Fatal(err)
		}

		p.Interrupt()
		if s.interrupts != 0 {
			t.Error("interrupt must be a no-op when not enabled")
		}
	})

	t.Run("enabled", func(t *testing.T) {
		s := &interruptibleStream{}
		p, err := tts.New(
			tts.WithInterrupt(true),
			tts.WithStreamFactory(func(tts.Config) (tts.Stream, error) {
				return s, nil
			}),
		)
		if err != nil {
			t.Fatal(err)
		}

		p.Interrupt()
		if s.interrupts != 1 {
			t.Errorf("expected 1 interrupt, got %d", s.interrupts)
		}
	})

	t.Run("unsupported stream", func(t *testing.T) {
		p, _ := newTestProvider(t, tts.WithInterrupt(true))
		p.Interrupt() // must not panic
	})
}
