package status_test

import (
	"testing"

	"github.com/teslashibe/go-kokoro/pkg/status"
)

func TestAudioStatusRoundTrip(t *testing.T) {
	s := status.AudioStatus{
		Header:          status.NewRandomHeader(),
		StatusMic:       status.MicReady,
		StatusSpeaker:   status.SpeakerActive,
		SentenceToSpeak: "hello there",
	}

	data, err := s.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := status.ParseAudioStatus(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.Header.FrameID != s.Header.FrameID {
		t.Errorf("frame id mismatch: %s vs %s", parsed.Header.FrameID, s.Header.FrameID)
	}
	if parsed.StatusSpeaker != status.SpeakerActive {
		t.Errorf("expected active speaker, got %s", parsed.StatusSpeaker)
	}
	if parsed.SentenceToSpeak != "hello there" {
		t.Errorf("unexpected sentence: %s", parsed.SentenceToSpeak)
	}
}

func TestParseAudioStatusInvalid(t *testing.T) {
	if _, err := status.ParseAudioStatus([]byte("{not json")); err == nil {
		t.Error("expected parse error")
	}
}

func TestControlResponseCorrelation(t *testing.T) {
	req := status.ControlRequest{
		Header:    status.NewHeader("frame-42"),
		RequestID: "req-7",
		Code:      status.CodeReadStatus,
	}

	resp := status.NewControlResponse(req, status.CodeEnable, "TTS Enabled")

	if resp.Header.FrameID != "frame-42" {
		t.Errorf("expected frame id echoed, got %s", resp.Header.FrameID)
	}
	if resp.RequestID != "req-7" {
		t.Errorf("expected request id echoed, got %s", resp.RequestID)
	}
	if resp.Code != status.CodeEnable {
		t.Errorf("unexpected code: %d", resp.Code)
	}
	if resp.Status != "TTS Enabled" {
		t.Errorf("unexpected status: %s", resp.Status)
	}
}

func TestControlRequestRoundTrip(t *testing.T) {
	req := status.ControlRequest{
		Header:    status.NewRandomHeader(),
		RequestID: "abc",
		Code:      status.CodeDisable,
	}

	data, err := req.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := status.ParseControlRequest(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Code != status.CodeDisable {
		t.Errorf("unexpected code: %d", parsed.Code)
	}
	if parsed.RequestID != "abc" {
		t.Errorf("unexpected request id: %s", parsed.RequestID)
	}
}
