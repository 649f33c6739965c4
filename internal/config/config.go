// Package config handles loading and validating the speakd configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the speakd daemon.
type Config struct {
	TTS     TTSConfig     `mapstructure:"tts"`
	Speak   SpeakConfig   `mapstructure:"speak"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Web     WebConfig     `mapstructure:"web"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TTSConfig holds the synthesis backend settings.
type TTSConfig struct {
	URL          string `mapstructure:"url"`
	APIKey       string `mapstructure:"api_key"`
	VoiceID      string `mapstructure:"voice_id"`
	ModelID      string `mapstructure:"model_id"`
	OutputFormat string `mapstructure:"output_format"`
	Rate         int    `mapstructure:"rate"`
	Interrupt    bool   `mapstructure:"interrupt"`
	Streaming    bool   `mapstructure:"streaming"`
}

// SpeakConfig holds the speak connector settings.
type SpeakConfig struct {
	SilenceRate int `mapstructure:"silence_rate"`
}

// RedisConfig configures the pub/sub transport.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// WebConfig configures the status/metrics server.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Host    string `mapstructure:"host"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the configuration from the given file path.
// Environment variables with the SPEAKD_ prefix override file values,
// e.g. SPEAKD_TTS_API_KEY overrides tts.api_key.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SPEAKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tts.url", "http://127.0.0.1:8880/v1")
	v.SetDefault("tts.voice_id", "af_bella")
	v.SetDefault("tts.model_id", "kokoro")
	v.SetDefault("tts.output_format", "pcm")
	v.SetDefault("tts.rate", 24000)
	v.SetDefault("tts.interrupt", false)
	v.SetDefault("tts.streaming", false)

	v.SetDefault("speak.silence_rate", 0)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "127.0.0.1:6379")

	v.SetDefault("web.enabled", true)
	v.SetDefault("web.host", "0.0.0.0")
	v.SetDefault("web.port", 8090)

	v.SetDefault("logging.level", "info")
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.TTS.URL == "" {
		return fmt.Errorf("tts.url is required")
	}
	if c.TTS.Rate <= 0 {
		return fmt.Errorf("tts.rate must be positive, got %d", c.TTS.Rate)
	}
	if c.Speak.SilenceRate < 0 {
		return fmt.Errorf("speak.silence_rate must not be negative, got %d", c.Speak.SilenceRate)
	}
	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	return nil
}
