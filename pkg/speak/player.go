package speak

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-kokoro/internal/log"
	"github.com/teslashibe/go-kokoro/pkg/bus"
	"github.com/teslashibe/go-kokoro/pkg/status"
	"github.com/teslashibe/go-kokoro/pkg/tts"
)

// Player is the playback bridge: it consumes audio status events published on
// the transport and feeds the embedded pending messages into the local
// provider queue. Run one per process that owns a speaker.
type Player struct {
	logger   *slog.Logger
	provider Speaker
	unsub    func()
}

// NewPlayer subscribes the bridge to the audio status topic.
func NewPlayer(ctx context.Context, sub bus.Subscriber, provider Speaker) (*Player, error) {
	p := &Player{
		logger:   log.Component("speak.player"),
		provider: provider,
	}

	unsub, err := sub.Subscribe(ctx, status.TopicAudio, p.handle)
	if err != nil {
		return nil, err
	}
	p.unsub = unsub
	return p, nil
}

func (p *Player) handle(_ string, payload []byte) {
	st, err := status.ParseAudioStatus(payload)
	if err != nil {
		p.logger.Warn("bad audio status", "error", err)
		return
	}

	if st.StatusSpeaker != status.SpeakerActive || st.SentenceToSpeak == "" {
		return
	}

	msg, err := tts.ParsePendingMessage([]byte(st.SentenceToSpeak))
	if err != nil {
		p.logger.Warn("bad pending message in audio status", "error", err)
		return
	}

	p.provider.AddPendingMessage(msg)
}

// Close removes the bridge's subscription.
func (p *Player) Close() {
	if p.unsub != nil {
		p.unsub()
		p.unsub = nil
	}
}
