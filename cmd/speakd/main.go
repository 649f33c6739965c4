// speakd is the robot's speech daemon. It owns the TTS provider, serves the
// speak control plane over Redis pub/sub, plays back published pending
// messages, and exposes status, metrics, and websocket audio streaming.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teslashibe/go-kokoro/internal/config"
	"github.com/teslashibe/go-kokoro/internal/log"
	"github.com/teslashibe/go-kokoro/pkg/audio"
	"github.com/teslashibe/go-kokoro/pkg/bus"
	"github.com/teslashibe/go-kokoro/pkg/convo"
	"github.com/teslashibe/go-kokoro/pkg/greeting"
	"github.com/teslashibe/go-kokoro/pkg/speak"
	"github.com/teslashibe/go-kokoro/pkg/status"
	"github.com/teslashibe/go-kokoro/pkg/tts"
	"github.com/teslashibe/go-kokoro/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	conversationPath := flag.String("conversation", "", "Path to conversation state file (default: Redis when enabled, else in-memory)")
	tickInterval := flag.Duration("tick", 10*time.Second, "Conversation state update interval")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Logging.Level)
	logger := log.Component("speakd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()
	}()

	// Pub/sub transport. A Redis failure is not fatal: the daemon degrades
	// to direct playback without a control plane.
	var transport bus.Bus
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		b, err := bus.NewRedis(redisClient)
		if err != nil {
			logger.Error("redis unavailable, falling back to direct playback",
				"addr", cfg.Redis.Addr, "error", err)
			redisClient = nil
		} else {
			transport = b
			defer b.Close()
		}
	}

	// Shared conversation state.
	var memory *convo.Memory
	switch {
	case *conversationPath != "":
		memory = convo.NewWithFile(*conversationPath)
	case redisClient != nil:
		memory = convo.NewWithStore(convo.NewRedisStore(
			redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}), "speakd:conversation"))
	default:
		memory = convo.New()
	}
	defer memory.Close()

	// Synthesized PCM fans out to websocket observers once the web server
	// is up. The server pointer is set before playback starts.
	var server *web.Server
	pcmSink := audio.SinkFunc(func(pcm []byte) error {
		if server != nil {
			server.PublishAudio(pcm)
		}
		return nil
	})

	ttsOpts := []tts.Option{
		tts.WithURL(cfg.TTS.URL),
		tts.WithAPIKey(cfg.TTS.APIKey),
		tts.WithVoice(cfg.TTS.VoiceID),
		tts.WithModel(cfg.TTS.ModelID),
		tts.WithOutputFormat(cfg.TTS.OutputFormat),
		tts.WithSampleRate(cfg.TTS.Rate),
		tts.WithInterrupt(cfg.TTS.Interrupt),
		tts.WithSink(pcmSink),
	}
	if cfg.TTS.Streaming {
		ttsOpts = append(ttsOpts, tts.WithStreaming())
	}
	provider, err := tts.New(ttsOpts...)
	if err != nil {
		logger.Error("tts provider", "error", err)
		os.Exit(1)
	}

	var sink speak.Sink
	connectorOpts := []speak.ConnectorOption{speak.WithRecorder(memory)}
	if transport != nil {
		sink = speak.NewPublishSink(transport)
		connectorOpts = append(connectorOpts, speak.WithTransport(transport))
	} else {
		sink = speak.NewDirectSink(provider)
	}

	connector, err := speak.New(provider, sink,
		speak.Config{SilenceRate: cfg.Speak.SilenceRate}, connectorOpts...)
	if err != nil {
		logger.Error("speak connector", "error", err)
		os.Exit(1)
	}
	defer connector.Stop()

	// With a transport, published pending messages come back through the
	// player; without one the connector already feeds the provider.
	if transport != nil {
		player, err := speak.NewPlayer(ctx, transport, provider)
		if err != nil {
			logger.Error("player", "error", err)
			os.Exit(1)
		}
		defer player.Close()
	}

	// Live speech input cuts off ongoing playback when interrupts are on.
	if cfg.TTS.Interrupt && transport != nil {
		_, err := transport.Subscribe(ctx, status.TopicAudio, func(_ string, payload []byte) {
			st, err := status.ParseAudioStatus(payload)
			if err != nil {
				return
			}
			if st.StatusMic == status.MicActive {
				provider.Interrupt()
			}
		})
		if err != nil {
			logger.Warn("interrupt stream unavailable", "error", err)
		}
	}

	greeter := greeting.New(provider, greeting.NewSilenceStateMachine(), memory)
	go greeter.Run(ctx, *tickInterval)

	if cfg.Web.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
		server = web.NewServer(addr, provider, connector)
		server.StartAsync()
		defer server.Shutdown()

		if transport != nil {
			_, err := transport.Subscribe(ctx, status.TopicAudio, func(_ string, payload []byte) {
				st, err := status.ParseAudioStatus(payload)
				if err != nil {
					return
				}
				server.PublishAudioStatus(st)
			})
			if err != nil {
				logger.Warn("status stream unavailable", "error", err)
			}
		}
	}

	provider.Start()
	defer provider.Stop()

	logger.Info("speakd running",
		"tts_url", cfg.TTS.URL,
		"voice", cfg.TTS.VoiceID,
		"silence_rate", cfg.Speak.SilenceRate,
		"redis", transport != nil,
	)

	<-ctx.Done()
}
