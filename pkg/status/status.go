// Package status defines the messages exchanged over the robot's pub/sub
// transport: audio status events and the TTS control plane.
package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topics used by the speech pipeline.
const (
	TopicAudio       = "robot/status/audio"
	TopicTTSRequest  = "om/tts/request"
	TopicTTSResponse = "om/tts/response"
)

// Header identifies a message frame. Responses echo the FrameID of the
// request they answer.
type Header struct {
	FrameID string `json:"frame_id"`
	Stamp   int64  `json:"stamp"` // Unix milliseconds
}

// NewHeader creates a header for the given frame ID with the current timestamp.
func NewHeader(frameID string) Header {
	return Header{
		FrameID: frameID,
		Stamp:   time.Now().UnixMilli(),
	}
}

// NewRandomHeader creates a header with a fresh UUID frame ID.
func NewRandomHeader() Header {
	return NewHeader(uuid.NewString())
}

// MicState describes the microphone.
type MicState string

const (
	MicUnknown MicState = "unknown"
	MicReady   MicState = "ready"
	MicActive  MicState = "active"
)

// SpeakerState describes the speaker.
type SpeakerState string

const (
	SpeakerUnknown SpeakerState = "unknown"
	SpeakerReady   SpeakerState = "ready"
	SpeakerActive  SpeakerState = "active"
)

// AudioStatus reports microphone/speaker state and the sentence currently
// queued for playback. Published on TopicAudio.
type AudioStatus struct {
	Header          Header       `json:"header"`
	StatusMic       MicState     `json:"status_mic"`
	StatusSpeaker   SpeakerState `json:"status_speaker"`
	SentenceToSpeak string       `json:"sentence_to_speak"`
}

// Bytes returns the JSON-encoded status.
func (s AudioStatus) Bytes() ([]byte, error) {
	return json.Marshal(s)
}

// ParseAudioStatus parses a JSON audio status from bytes.
func ParseAudioStatus(data []byte) (AudioStatus, error) {
	var s AudioStatus
	if err := json.Unmarshal(data, &s); err != nil {
		return AudioStatus{}, fmt.Errorf("parse audio status: %w", err)
	}
	return s, nil
}

// ControlCode selects a TTS control-plane operation.
type ControlCode int

const (
	CodeDisable    ControlCode = 0
	CodeEnable     ControlCode = 1
	CodeReadStatus ControlCode = 2
)

// ControlRequest asks the speak connector to enable, disable, or report the
// TTS state. Published on TopicTTSRequest.
type ControlRequest struct {
	Header    Header      `json:"header"`
	RequestID string      `json:"request_id"`
	Code      ControlCode `json:"code"`
}

// Bytes returns the JSON-encoded request.
func (r ControlRequest) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// ParseControlRequest parses a JSON control request from bytes.
func ParseControlRequest(data []byte) (ControlRequest, error) {
	var r ControlRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return ControlRequest{}, fmt.Errorf("parse control request: %w", err)
	}
	return r, nil
}

// ControlResponse answers a ControlRequest. The header frame ID and request
// ID are copied from the request so the caller can correlate the reply.
type ControlResponse struct {
	Header    Header      `json:"header"`
	RequestID string      `json:"request_id"`
	Code      ControlCode `json:"code"`
	Status    string      `json:"status"`
}

// NewControlResponse builds a response correlated to req.
func NewControlResponse(req ControlRequest, code ControlCode, statusText string) ControlResponse {
	return ControlResponse{
		Header:    NewHeader(req.Header.FrameID),
		RequestID: req.RequestID,
		Code:      code,
		Status:    statusText,
	}
}

// Bytes returns the JSON-encoded response.
func (r ControlResponse) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// ParseControlResponse parses a JSON control response from bytes.
func ParseControlResponse(data []byte) (ControlResponse, error) {
	var r ControlResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return ControlResponse{}, fmt.Errorf("parse control response: %w", err)
	}
	return r, nil
}
