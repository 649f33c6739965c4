// Package speak implements the speak connector: it gates incoming speak
// requests behind the TTS enable switch and the silence-rate policy, forwards
// accepted requests to the shared TTS provider, and answers the control-plane
// protocol on the transport.
package speak

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/teslashibe/go-kokoro/internal/log"
	"github.com/teslashibe/go-kokoro/internal/observability"
	"github.com/teslashibe/go-kokoro/pkg/bus"
	"github.com/teslashibe/go-kokoro/pkg/status"
	"github.com/teslashibe/go-kokoro/pkg/tts"
)

// Speaker is the provider surface the connector needs.
type Speaker interface {
	CreatePendingMessage(text string) tts.PendingMessage
	AddPendingMessage(msg tts.PendingMessage)
}

// Recorder stores robot utterances into conversation history. Only turns
// triggered by live voice input are recorded.
type Recorder interface {
	StoreRobotMessage(text string)
}

// Request is one speak request. FromVoice marks requests that originate from
// a live voice interaction; those bypass the silence-rate gate.
type Request struct {
	Text      string
	FromVoice bool
}

// Config holds the connector settings.
type Config struct {
	// SilenceRate is the number of consecutive non-voice-triggered
	// requests to skip before letting one through. Zero disables the gate.
	SilenceRate int
}

// Connector gates and forwards speak requests.
type Connector struct {
	logger *slog.Logger
	cfg    Config

	provider Speaker
	sink     Sink
	recorder Recorder

	transport bus.Bus
	unsubs    []func()

	mu             sync.Mutex
	enabled        bool
	silenceCounter int
	lastMic        status.MicState
}

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithRecorder attaches a conversation history recorder.
func WithRecorder(r Recorder) ConnectorOption {
	return func(c *Connector) {
		c.recorder = r
	}
}

// WithTransport attaches the pub/sub transport. The connector subscribes to
// the control-plane request topic and to audio status events (to track the
// microphone state it reports in outgoing statuses).
func WithTransport(t bus.Bus) ConnectorOption {
	return func(c *Connector) {
		c.transport = t
	}
}

// New creates a connector that forwards accepted requests to sink.
// TTS starts enabled.
func New(provider Speaker, sink Sink, cfg Config, opts ...ConnectorOption) (*Connector, error) {
	c := &Connector{
		logger:   log.Component("speak.connector"),
		cfg:      cfg,
		provider: provider,
		sink:     sink,
		enabled:  true,
		lastMic:  status.MicUnknown,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport != nil {
		ctx := context.Background()

		unsub, err := c.transport.Subscribe(ctx, status.TopicTTSRequest, c.handleControl)
		if err != nil {
			return nil, fmt.Errorf("subscribe control plane: %w", err)
		}
		c.unsubs = append(c.unsubs, unsub)

		unsub, err = c.transport.Subscribe(ctx, status.TopicAudio, c.handleAudio)
		if err != nil {
			return nil, fmt.Errorf("subscribe audio status: %w", err)
		}
		c.unsubs = append(c.unsubs, unsub)

		// Announce a ready speaker so listeners see us immediately.
		ready := status.AudioStatus{
			Header:        status.NewRandomHeader(),
			StatusMic:     status.MicUnknown,
			StatusSpeaker: status.SpeakerReady,
		}
		if data, err := ready.Bytes(); err == nil {
			if err := c.transport.Publish(ctx, status.TopicAudio, data); err != nil {
				c.logger.Warn("publishing initial audio status", "error", err)
			}
		}
	}

	return c, nil
}

// Connect processes one speak request. Disabled TTS and silence-gated
// requests are dropped; everything else is delivered through the sink.
// The actual playback happens out of band and is never awaited here.
func (c *Connector) Connect(ctx context.Context, req Request) error {
	c.mu.Lock()

	if !c.enabled {
		c.mu.Unlock()
		c.logger.Info("TTS is disabled, skipping speak request")
		observability.SpeakRequest(observability.OutcomeSkippedDisabled)
		return nil
	}

	if c.cfg.SilenceRate > 0 && c.silenceCounter < c.cfg.SilenceRate && !req.FromVoice {
		c.silenceCounter++
		counter := c.silenceCounter
		c.mu.Unlock()
		c.logger.Info("skipping speak request",
			"silence_rate", c.cfg.SilenceRate,
			"silence_counter", counter,
		)
		observability.SpeakRequest(observability.OutcomeSkippedSilence)
		return nil
	}

	c.silenceCounter = 0
	mic := c.lastMic
	c.mu.Unlock()

	msg := c.provider.CreatePendingMessage(req.Text)

	if req.FromVoice && c.recorder != nil {
		c.recorder.StoreRobotMessage(req.Text)
	}

	sentence, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("serialize pending message: %w", err)
	}

	st := status.AudioStatus{
		Header:          status.NewRandomHeader(),
		StatusMic:       mic,
		StatusSpeaker:   status.SpeakerActive,
		SentenceToSpeak: string(sentence),
	}

	observability.SpeakRequest(observability.OutcomeSpoken)
	return c.sink.Deliver(ctx, msg, st)
}

// Enabled reports whether TTS is administratively enabled.
func (c *Connector) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SilenceCounter returns the current skip counter.
func (c *Connector) SilenceCounter() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.silenceCounter
}

// handleControl answers one control-plane request. Every response echoes the
// request's frame ID and request ID.
func (c *Connector) handleControl(_ string, payload []byte) {
	req, err := status.ParseControlRequest(payload)
	if err != nil {
		c.logger.Warn("bad control request", "error", err)
		return
	}

	observability.ControlRequest(strconv.Itoa(int(req.Code)))

	var resp status.ControlResponse
	switch req.Code {
	case status.CodeReadStatus:
		c.mu.Lock()
		enabled := c.enabled
		c.mu.Unlock()
		code := status.CodeDisable
		text := "TTS Disabled"
		if enabled {
			code = status.CodeEnable
			text = "TTS Enabled"
		}
		resp = status.NewControlResponse(req, code, text)

	case status.CodeEnable:
		c.mu.Lock()
		c.enabled = true
		c.mu.Unlock()
		c.logger.Debug("TTS enabled")
		resp = status.NewControlResponse(req, status.CodeEnable, "TTS Enabled")

	case status.CodeDisable:
		c.mu.Lock()
		c.enabled = false
		c.mu.Unlock()
		c.logger.Debug("TTS disabled")
		resp = status.NewControlResponse(req, status.CodeDisable, "TTS Disabled")

	default:
		c.logger.Warn("unknown control code", "code", req.Code)
		return
	}

	data, err := resp.Bytes()
	if err != nil {
		c.logger.Error("serialize control response", "error", err)
		return
	}
	if err := c.transport.Publish(context.Background(), status.TopicTTSResponse, data); err != nil {
		c.logger.Error("publish control response", "error", err)
	}
}

// handleAudio tracks the latest microphone state seen on the transport.
func (c *Connector) handleAudio(_ string, payload []byte) {
	st, err := status.ParseAudioStatus(payload)
	if err != nil {
		c.logger.Warn("bad audio status", "error", err)
		return
	}
	c.mu.Lock()
	c.lastMic = st.StatusMic
	c.mu.Unlock()
}

// Stop removes the connector's transport subscriptions.
func (c *Connector) Stop() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}
