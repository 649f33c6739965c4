package greeting

import (
	"sync"
	"time"
)

// ConversationState tracks where a greeting conversation is.
type ConversationState string

const (
	StateGreeting   ConversationState = "greeting"
	StateConversing ConversationState = "conversing"
	StateFinished   ConversationState = "finished"
)

// Turn is one conversation exchange handed to the state machine.
type Turn struct {
	State         ConversationState
	Response      string
	Confidence    float64
	SpeechClarity float64
}

// Report is the state machine's view after processing a turn or a
// silence-only update.
type Report struct {
	State           ConversationState
	Confidence      float64
	SilenceDuration time.Duration
}

// StateMachine drives the conversation lifecycle. ProcessTurn consumes a new
// exchange; UpdateWithoutInput advances state from elapsed silence alone.
type StateMachine interface {
	ProcessTurn(Turn) Report
	UpdateWithoutInput() Report
}

// ContextStore receives shared context updates, such as the conversation
// having finished.
type ContextStore interface {
	UpdateContext(map[string]any)
}

// DefaultIdleTimeout is how long a conversation may sit without a turn
// before the silence machine declares it finished.
const DefaultIdleTimeout = 30 * time.Second

// SilenceStateMachine is a minimal StateMachine that finishes a conversation
// after a period of silence. It lets the daemon run without an external
// conversation engine.
type SilenceStateMachine struct {
	mu          sync.Mutex
	state       ConversationState
	confidence  float64
	lastTurn    time.Time
	idleTimeout time.Duration
	now         func() time.Time
}

// SilenceOption configures a SilenceStateMachine.
type SilenceOption func(*SilenceStateMachine)

// WithIdleTimeout overrides the silence window that ends the conversation.
func WithIdleTimeout(d time.Duration) SilenceOption {
	return func(m *SilenceStateMachine) {
		m.idleTimeout = d
	}
}

// WithSilenceClock overrides the machine's clock.
func WithSilenceClock(now func() time.Time) SilenceOption {
	return func(m *SilenceStateMachine) {
		m.now = now
	}
}

// NewSilenceStateMachine returns a machine in the greeting state.
func NewSilenceStateMachine(opts ...SilenceOption) *SilenceStateMachine {
	m := &SilenceStateMachine{
		state:       StateGreeting,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastTurn = m.now()
	return m
}

var _ StateMachine = (*SilenceStateMachine)(nil)

// ProcessTurn records a new exchange and adopts its reported state.
func (m *SilenceStateMachine) ProcessTurn(t Turn) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastTurn = m.now()
	m.confidence = t.Confidence

	switch t.State {
	case StateGreeting, StateConversing, StateFinished:
		m.state = t.State
	default:
		// A turn with no explicit state still moves greeting forward.
		if m.state == StateGreeting {
			m.state = StateConversing
		}
	}

	return Report{State: m.state, Confidence: m.confidence}
}

// UpdateWithoutInput advances the conversation from silence: after the idle
// timeout it transitions to finished.
func (m *SilenceStateMachine) UpdateWithoutInput() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	silence := m.now().Sub(m.lastTurn)
	if m.state != StateFinished && silence >= m.idleTimeout {
		m.state = StateFinished
	}

	return Report{State: m.state, Confidence: m.confidence, SilenceDuration: silence}
}

// State returns the current conversation state.
func (m *SilenceStateMachine) State() ConversationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
