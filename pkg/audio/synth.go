// Package audio implements the output side of the speech pipeline: a
// synthesis client for the TTS backend and a playback stream that owns the
// queue of pending messages.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-kokoro/internal/httpc"
	"github.com/teslashibe/go-kokoro/internal/log"
)

const backendKokoro = "kokoro"

// Request carries one sentence and its synthesis parameters.
type Request struct {
	Text         string `json:"text"`
	VoiceID      string `json:"voice_id"`
	ModelID      string `json:"model_id"`
	OutputFormat string `json:"output_format"`
}

// Result is the synthesized audio for one request.
type Result struct {
	// Audio contains the raw audio data in the requested format.
	Audio []byte

	// SampleRate in Hz.
	SampleRate int

	// LatencyMs is the time to complete the request in milliseconds.
	LatencyMs int64
}

// Synthesizer converts one request into audio. Implementations must be safe
// for sequential use from the stream worker; they are not called concurrently.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Result, error)
	Close() error
}

// HTTPSynthesizer talks to a Kokoro-compatible HTTP backend
// (POST {base}/audio/speech, OpenAI speech API shape).
type HTTPSynthesizer struct {
	baseURL    string
	apiKey     string
	sampleRate int
	client     *http.Client
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewHTTPSynthesizer creates a synthesizer for the backend at baseURL.
// apiKey may be empty; when set it is sent as the x-api-key header.
func NewHTTPSynthesizer(baseURL, apiKey string, sampleRate int) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		baseURL:    baseURL,
		apiKey:     apiKey,
		sampleRate: sampleRate,
		client:     httpc.NewClient(httpc.DefaultTimeout),
		logger:     log.Component("audio.synth"),
		maxRetries: 3,
		retryDelay: 100 * time.Millisecond,
	}
}

// Synthesize performs the HTTP synthesis request.
func (h *HTTPSynthesizer) Synthesize(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	payload := map[string]interface{}{
		"model":           req.ModelID,
		"voice":           req.VoiceID,
		"input":           req.Text,
		"response_format": req.OutputFormat,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(backendKokoro, fmt.Errorf("marshal payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(backendKokoro, fmt.Errorf("create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("x-api-key", h.apiKey)
	}

	resp, err := h.doWithRetry(ctx, httpReq, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		return nil, h.parseError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(backendKokoro, fmt.Errorf("read response: %w", err))
	}

	h.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(data),
		"latency_ms", latency,
		"voice", req.VoiceID,
	)

	return &Result{
		Audio:      data,
		SampleRate: h.sampleRate,
		LatencyMs:  latency,
	}, nil
}

// Close releases resources.
func (h *HTTPSynthesizer) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// doWithRetry performs the request with retry logic on 429 and 5xx.
func (h *HTTPSynthesizer) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.retryDelay * time.Duration(attempt)):
			}

			// Reset body for retry
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := h.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = WrapError(backendKokoro, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = &APIError{
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
				Backend:    backendKokoro,
			}
			h.logger.Warn("retrying synthesis request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response.
func (h *HTTPSynthesizer) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Backend:    backendKokoro,
	}
}

// Verify HTTPSynthesizer implements Synthesizer at compile time.
var _ Synthesizer = (*HTTPSynthesizer)(nil)
