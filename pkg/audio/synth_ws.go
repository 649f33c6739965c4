package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-kokoro/internal/log"
)

const wsHandshakeTimeout = 10 * time.Second

// WSSynthesizer streams synthesis over a persistent websocket connection for
// lower latency than per-request HTTP. The backend is expected to answer a
// JSON request frame with binary audio frames followed by a JSON done frame.
type WSSynthesizer struct {
	wsURL      string
	apiKey     string
	sampleRate int
	logger     *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn
}

// NewWSSynthesizer creates a streaming synthesizer. baseURL is the backend's
// HTTP base (e.g. http://127.0.0.1:8880/v1); the websocket endpoint is derived
// from it.
func NewWSSynthesizer(baseURL, apiKey string, sampleRate int) *WSSynthesizer {
	wsURL := strings.Replace(baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	return &WSSynthesizer{
		wsURL:      wsURL + "/audio/stream",
		apiKey:     apiKey,
		sampleRate: sampleRate,
		logger:     log.Component("audio.synth_ws"),
	}
}

// dial establishes the websocket connection. Callers hold connMu.
func (w *WSSynthesizer) dial(ctx context.Context) error {
	headers := http.Header{}
	if w.apiKey != "" {
		headers.Set("x-api-key", w.apiKey)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, w.wsURL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	w.conn = conn
	w.logger.Info("websocket connected", "url", w.wsURL)
	return nil
}

// Synthesize sends one request frame and collects audio frames until the
// backend signals completion. The connection is reused across calls and
// re-established after errors.
func (w *WSSynthesizer) Synthesize(ctx context.Context, req Request) (*Result, error) {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	start := time.Now()

	if w.conn == nil {
		if err := w.dial(ctx); err != nil {
			return nil, WrapError(backendKokoro, err)
		}
	}

	if err := w.conn.WriteJSON(req); err != nil {
		w.reset()
		return nil, WrapError(backendKokoro, fmt.Errorf("send request: %w", err))
	}

	if deadline, ok := ctx.Deadline(); ok {
		w.conn.SetReadDeadline(deadline)
	} else {
		w.conn.SetReadDeadline(time.Now().Add(httpcStreamTimeout))
	}

	var audio []byte
	for {
		if ctx.Err() != nil {
			w.reset()
			return nil, ctx.Err()
		}

		msgType, frame, err := w.conn.ReadMessage()
		if err != nil {
			w.reset()
			return nil, WrapError(backendKokoro, fmt.Errorf("read frame: %w", err))
		}

		if msgType == websocket.BinaryMessage {
			audio = append(audio, frame...)
			continue
		}

		var ctrl struct {
			Done  bool   `json:"done"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(frame, &ctrl); err != nil {
			w.logger.Warn("unexpected text frame", "frame", string(frame))
			continue
		}
		if ctrl.Error != "" {
			return nil, WrapError(backendKokoro, fmt.Errorf("backend: %s", ctrl.Error))
		}
		if ctrl.Done {
			break
		}
	}

	return &Result{
		Audio:      audio,
		SampleRate: w.sampleRate,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// reset drops the connection so the next call redials. Callers hold connMu.
func (w *WSSynthesizer) reset() {
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// Close closes the websocket connection.
func (w *WSSynthesizer) Close() error {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	w.reset()
	return nil
}

// Read deadline for streaming reads when the caller sets no context deadline.
const httpcStreamTimeout = 60 * time.Second

// Verify WSSynthesizer implements Synthesizer at compile time.
var _ Synthesizer = (*WSSynthesizer)(nil)
