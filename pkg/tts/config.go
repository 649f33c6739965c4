package tts

// Default configuration values for the Kokoro backend.
const (
	DefaultURL          = "http://127.0.0.1:8880/v1"
	DefaultVoiceID      = "af_bella"
	DefaultModelID      = "kokoro"
	DefaultOutputFormat = "pcm"
	DefaultSampleRate   = 24000
)

// Config holds the provider configuration. A Config is immutable once
// applied; pass a new one to Configure to change the provider's behavior.
type Config struct {
	// Backend endpoint
	URL    string
	APIKey string

	// Voice configuration
	VoiceID      string
	ModelID      string
	OutputFormat string
	SampleRate   int

	// EnableInterrupt allows ongoing playback to be cut off when new
	// speech input is detected.
	EnableInterrupt bool
}

// DefaultConfig returns the default Kokoro configuration.
func DefaultConfig() Config {
	return Config{
		URL:          DefaultURL,
		VoiceID:      DefaultVoiceID,
		ModelID:      DefaultModelID,
		OutputFormat: DefaultOutputFormat,
		SampleRate:   DefaultSampleRate,
	}
}

// Equal reports whether two configurations match field by field.
// Configure uses this to decide whether a restart is needed.
func (c Config) Equal(other Config) bool {
	return c == other
}

// Option is a functional option for configuring the provider.
type Option func(*settings)

// WithURL overrides the backend base URL.
func WithURL(url string) Option {
	return func(s *settings) {
		s.cfg.URL = url
	}
}

// WithAPIKey sets the backend API key.
func WithAPIKey(key string) Option {
	return func(s *settings) {
		s.cfg.APIKey = key
	}
}

// WithVoice sets the voice ID.
func WithVoice(voiceID string) Option {
	return func(s *settings) {
		s.cfg.VoiceID = voiceID
	}
}

// WithModel sets the model ID.
func WithModel(modelID string) Option {
	return func(s *settings) {
		s.cfg.ModelID = modelID
	}
}

// WithOutputFormat sets the audio output format (e.g. pcm, wav).
func WithOutputFormat(format string) Option {
	return func(s *settings) {
		s.cfg.OutputFormat = format
	}
}

// WithSampleRate sets the audio sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(s *settings) {
		s.cfg.SampleRate = rate
	}
}

// WithInterrupt enables playback interruption on new speech input.
func WithInterrupt(enabled bool) Option {
	return func(s *settings) {
		s.cfg.EnableInterrupt = enabled
	}
}

// WithStreaming makes the default stream factory use the websocket
// streaming synthesizer instead of the HTTP one.
func WithStreaming() Option {
	return func(s *settings) {
		s.streaming = true
	}
}

// WithStreamFactory overrides how backend streams are constructed.
// Tests use this to substitute a fake stream.
func WithStreamFactory(f StreamFactory) Option {
	return func(s *settings) {
		s.factory = f
	}
}

// WithSink sets the playback sink used by the default stream factory.
func WithSink(sink Sink) Option {
	return func(s *settings) {
		s.sink = sink
	}
}
