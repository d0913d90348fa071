package wire

import "testing"

func TestEffectiveMask_AllRequested(t *testing.T) {
	got := Effective(MediaAll, MediaAudio|MediaTranscript)
	want := MediaAudio | MediaTranscript
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestEffectiveMask_Boundary(t *testing.T) {
	// requested = all(32), available = audio|transcript -> audio|transcript
	got := Effective(MediaAll, MediaAudio|MediaTranscript)
	if got != MediaAudio|MediaTranscript {
		t.Fatalf("boundary case failed: got %d", got)
	}
}

func TestEffectiveMask_ExplicitSubset(t *testing.T) {
	requested := MediaAudio | MediaTranscript | MediaChat // 1|8|16=25
	available := MediaAudio | MediaTranscript              // server only has audio+transcript URLs
	got := Effective(requested, available)
	if got != MediaAudio|MediaTranscript {
		t.Fatalf("got %d, want audio|transcript", got)
	}
	if got.PopCount() != 2 {
		t.Fatalf("expected popcount 2, got %d", got.PopCount())
	}
}

func TestPopCount(t *testing.T) {
	m := MediaAudio | MediaVideo
	if m.PopCount() != 2 {
		t.Fatalf("got %d", m.PopCount())
	}
}

func TestAvailableFromServerURLs(t *testing.T) {
	urls := map[string]string{
		"audio": "wss://a",
		"video": "wss://b",
	}
	got := AvailableFromServerURLs(urls)
	want := MediaAudio | MediaVideo
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestDecode_SignalingHandshakeResponse(t *testing.T) {
	raw := []byte(`{"msg_type":2,"status_code":0,"media_server":{"server_urls":{"audio":"wss://x"}}}`)
	msgType, payload, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != MsgSignalingHandshakeResponse {
		t.Fatalf("got msgType %d", msgType)
	}
	resp, ok := payload.(*SignalingHandshakeResponse)
	if !ok {
		t.Fatalf("expected *SignalingHandshakeResponse, got %T", payload)
	}
	if resp.StatusCode != 0 {
		t.Fatalf("got status %d", resp.StatusCode)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, _, err := Decode([]byte(`{not json`))
	if err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestDecode_UnrecognizedMsgType(t *testing.T) {
	_, _, err := Decode([]byte(`{"msg_type":999}`))
	if err == nil {
		t.Fatalf("expected error for unrecognized msg_type")
	}
}
