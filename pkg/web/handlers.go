package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-kokoro/pkg/hub"
	"github.com/teslashibe/go-kokoro/pkg/status"
)

// StatusResponse is the /status payload.
type StatusResponse struct {
	Running         bool                `json:"running"`
	PendingMessages int                 `json:"pending_messages"`
	TTSEnabled      bool                `json:"tts_enabled"`
	SilenceCounter  int                 `json:"silence_counter"`
	LastAudioStatus *status.AudioStatus `json:"last_audio_status,omitempty"`
	StatusClients   int                 `json:"status_clients"`
	AudioClients    int                 `json:"audio_clients"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		StatusClients: s.statusHub.ClientCount(),
		AudioClients:  s.audioHub.ClientCount(),
	}
	if s.speech != nil {
		resp.Running = s.speech.Running()
		resp.PendingMessages = s.speech.PendingMessageCount()
	}
	if s.control != nil {
		resp.TTSEnabled = s.control.Enabled()
		resp.SilenceCounter = s.control.SilenceCounter()
	}

	s.mu.RLock()
	resp.LastAudioStatus = s.lastStatus
	s.mu.RUnlock()

	return c.JSON(resp)
}

// handleStatusWS streams audio status events. The latest status is sent on
// connect so observers start with current state.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.mu.RLock()
	last := s.lastStatus
	s.mu.RUnlock()
	if last != nil {
		if err := c.WriteJSON(*last); err != nil {
			c.Close()
			return
		}
	}

	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

// handleAudioWS streams synthesized PCM chunks as binary frames.
func (s *Server) handleAudioWS(c *websocket.Conn) {
	client := hub.NewClient(s.audioHub, c)
	client.Run()
}
