package audio

import "sync"

// Sink receives synthesized audio. A real deployment attaches a playback
// pipeline (ALSA, GStreamer, a network speaker); tests attach a BufferSink.
type Sink interface {
	Write(pcm []byte) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(pcm []byte) error

// Write implements Sink.
func (f SinkFunc) Write(pcm []byte) error {
	return f(pcm)
}

// Discard is a Sink that drops all audio.
var Discard Sink = SinkFunc(func([]byte) error { return nil })

// BufferSink collects written audio chunks for inspection.
type BufferSink struct {
	mu     sync.Mutex
	chunks [][]byte
}

// Write implements Sink.
func (b *BufferSink) Write(pcm []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	b.chunks = append(b.chunks, cp)
	return nil
}

// Chunks returns the chunks written so far.
func (b *BufferSink) Chunks() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.chunks))
	copy(out, b.chunks)
	return out
}

// Len returns the number of chunks written.
func (b *BufferSink) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}
