// Package greeting handles greeting conversations: it speaks the response,
// drives the conversation state machine, and throttles silence-based state
// updates while audio is still playing.
package greeting

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-kokoro/internal/log"
)

// WordsPerMinute is the assumed speech rate for duration estimates.
const WordsPerMinute = 100

// EstimateSpeechDuration guesses how long text takes to speak at
// WordsPerMinute. It is a heuristic gate, not an audio clock.
func EstimateSpeechDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	seconds := float64(words) / WordsPerMinute * 60.0
	return time.Duration(seconds * float64(time.Second))
}

// Enqueuer enqueues text for playback.
type Enqueuer interface {
	AddText(text string)
}

// Input is one greeting conversation turn from the dispatch layer.
type Input struct {
	ConversationState ConversationState
	Response          string
	Confidence        float64
	SpeechClarity     float64
}

// Connector speaks greeting responses and keeps the conversation state
// machine in step with playback.
type Connector struct {
	logger   *slog.Logger
	provider Enqueuer
	machine  StateMachine
	store    ContextStore
	now      func() time.Time

	mu          sync.Mutex
	triggeredAt time.Time
	duration    time.Duration
}

// Option configures a Connector.
type Option func(*Connector)

// WithClock overrides the connector's clock.
func WithClock(now func() time.Time) Option {
	return func(c *Connector) {
		c.now = now
	}
}

// New builds a Connector. provider and machine are required; store may be
// nil when no shared context exists.
func New(provider Enqueuer, machine StateMachine, store ContextStore, opts ...Option) *Connector {
	c := &Connector{
		logger:   log.Component("greeting"),
		provider: provider,
		machine:  machine,
		store:    store,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mu.Lock()
	c.triggeredAt = c.now()
	c.mu.Unlock()
	return c
}

// Connect speaks the turn's response and runs the state machine on it.
func (c *Connector) Connect(ctx context.Context, in Input) {
	c.logger.Info("conversation turn",
		"state", in.ConversationState,
		"confidence", in.Confidence,
		"clarity", in.SpeechClarity,
	)

	c.provider.AddText(in.Response)

	c.mu.Lock()
	c.duration = EstimateSpeechDuration(in.Response)
	c.triggeredAt = c.now()
	c.mu.Unlock()

	report := c.machine.ProcessTurn(Turn{
		State:         in.ConversationState,
		Response:      in.Response,
		Confidence:    in.Confidence,
		SpeechClarity: in.SpeechClarity,
	})
	c.checkFinished(report)
}

// Tick updates conversation state from elapsed silence. It skips the update
// entirely while the last response is estimated to still be playing.
func (c *Connector) Tick() {
	c.mu.Lock()
	elapsed := c.now().Sub(c.triggeredAt)
	duration := c.duration
	c.mu.Unlock()

	if elapsed < duration {
		c.logger.Debug("skipping tick, speech in progress",
			"remaining", (duration - elapsed).Round(time.Millisecond))
		return
	}

	report := c.machine.UpdateWithoutInput()
	c.logger.Debug("state update",
		"state", report.State,
		"confidence", report.Confidence,
		"silence", report.SilenceDuration.Round(time.Millisecond),
	)
	c.checkFinished(report)
}

// Run ticks on the given interval until ctx is done.
func (c *Connector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

func (c *Connector) checkFinished(report Report) {
	if report.State != StateFinished {
		return
	}
	c.logger.Info("greeting conversation finished")
	if c.store != nil {
		c.store.UpdateContext(map[string]any{"greeting_conversation_finished": true})
	}
}
