package speak

import (
	"context"

	"github.com/teslashibe/go-kokoro/pkg/bus"
	"github.com/teslashibe/go-kokoro/pkg/status"
	"github.com/teslashibe/go-kokoro/pkg/tts"
)

// Sink is where accepted speak requests go. The variant is chosen once at
// construction: publish to the transport when one is available, enqueue into
// the provider directly otherwise.
type Sink interface {
	Deliver(ctx context.Context, msg tts.PendingMessage, st status.AudioStatus) error
}

// PublishSink publishes the audio status (carrying the serialized pending
// message) on the transport. A separate playback bridge consumes it.
type PublishSink struct {
	pub bus.Publisher
}

// NewPublishSink creates a sink that publishes on pub.
func NewPublishSink(pub bus.Publisher) *PublishSink {
	return &PublishSink{pub: pub}
}

// Deliver implements Sink.
func (s *PublishSink) Deliver(ctx context.Context, _ tts.PendingMessage, st status.AudioStatus) error {
	data, err := st.Bytes()
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, status.TopicAudio, data)
}

// DirectSink enqueues accepted messages straight into the provider. Used when
// no transport is available.
type DirectSink struct {
	provider Speaker
}

// NewDirectSink creates a sink that enqueues into provider.
func NewDirectSink(provider Speaker) *DirectSink {
	return &DirectSink{provider: provider}
}

// Deliver implements Sink.
func (s *DirectSink) Deliver(_ context.Context, msg tts.PendingMessage, _ status.AudioStatus) error {
	s.provider.AddPendingMessage(msg)
	return nil
}

// Compile-time interface checks.
var (
	_ Sink = (*PublishSink)(nil)
	_ Sink = (*DirectSink)(nil)
)
