// Package web exposes the speech daemon's observation surface: health and
// status endpoints, Prometheus metrics, and websocket streams for audio
// status events and synthesized PCM.
package web

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-kokoro/internal/log"
	"github.com/teslashibe/go-kokoro/pkg/hub"
	"github.com/teslashibe/go-kokoro/pkg/status"
)

// Speech reports the playback pipeline's queue state.
type Speech interface {
	Running() bool
	PendingMessageCount() int
}

// Control reports the speak connector's gating state.
type Control interface {
	Enabled() bool
	SilenceCounter() int
}

// Server is the daemon's HTTP/websocket server.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	speech  Speech
	control Control

	mu         sync.RWMutex
	lastStatus *status.AudioStatus

	statusHub *hub.Hub
	audioHub  *hub.Hub

	cancel context.CancelFunc
}

// NewServer builds the server. speech and control may be nil; the status
// endpoint omits what it cannot observe.
func NewServer(addr string, speech Speech, control Control) *Server {
	s := &Server{
		addr:      addr,
		logger:    log.Component("web"),
		speech:    speech,
		control:   control,
		statusHub: hub.New("status"),
		audioHub:  hub.New("audio"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "speakd",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)
	app.Get("/status", s.handleStatus)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/audio", websocket.New(s.handleAudioWS))

	s.app = app
	return s
}

// Start runs the hubs and listens on the configured address. Blocks until
// Shutdown or a listen error.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.statusHub.Run(ctx)
	go s.audioHub.Run(ctx)

	s.logger.Info("listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync runs Start in a goroutine and logs any listen error.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("server error", "error", err)
		}
	}()
}

// PublishAudioStatus records the latest audio status and streams it to
// websocket observers.
func (s *Server) PublishAudioStatus(st status.AudioStatus) {
	s.mu.Lock()
	s.lastStatus = &st
	s.mu.Unlock()
	if err := s.statusHub.BroadcastJSON(st); err != nil {
		s.logger.Warn("broadcast failed", "error", err)
	}
}

// PublishAudio streams a synthesized PCM chunk to websocket observers.
func (s *Server) PublishAudio(pcm []byte) {
	s.audioHub.BroadcastBinary(pcm)
}

// Shutdown stops the hubs and the HTTP server.
func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.app.Shutdown()
}
