package tts

import (
	"encoding/json"
	"fmt"
)

// PendingMessage is a queued unit of text plus synthesis parameters awaiting
// playback. It is created from the provider's active configuration and never
// mutated afterwards.
type PendingMessage struct {
	Text         string `json:"text"`
	VoiceID      string `json:"voice_id"`
	ModelID      string `json:"model_id"`
	OutputFormat string `json:"output_format"`
}

// Bytes returns the JSON-encoded message, as carried inside audio status
// events on the transport.
func (m PendingMessage) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParsePendingMessage parses a JSON pending message from bytes.
func ParsePendingMessage(data []byte) (PendingMessage, error) {
	var m PendingMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return PendingMessage{}, fmt.Errorf("parse pending message: %w", err)
	}
	return m, nil
}
