package signature

import "testing"

func TestSign_Deterministic(t *testing.T) {
	a := Sign("client-1", "uuid-A", "stream-1", "secret")
	b := Sign("client-1", "uuid-A", "stream-1", "secret")
	if a != b {
		t.Fatalf("signature is not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 { // hex-encoded SHA-256 is 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestSign_DiffersPerInput(t *testing.T) {
	a := Sign("client-1", "uuid-A", "stream-1", "secret")
	b := Sign("client-2", "uuid-A", "stream-1", "secret")
	if a == b {
		t.Fatalf("expected different signatures for different clientId")
	}
}

func TestValidateURLResponse_Scenario(t *testing.T) {
	// plainToken="abc123", secret="s".
	got := ValidateURLResponse("abc123", "s")
	want := hexHMAC("s", "abc123")
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestValidateURLResponse_Idempotent(t *testing.T) {
	a := ValidateURLResponse("random-64-byte-token", "secret")
	b := ValidateURLResponse("random-64-byte-token", "secret")
	if a != b {
		t.Fatalf("recomputing the response for the same plainToken must yield identical bytes")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "webhook-secret"
	timestamp := "1690000000"
	body := `{"event":"meeting.started"}`
	header := "v0=" + hexHMAC(secret, "v0:"+timestamp+":"+body)

	if !VerifyWebhookSignature(timestamp, body, secret, header) {
		t.Fatalf("expected signature to verify")
	}
	if VerifyWebhookSignature(timestamp, body, secret, "v0=deadbeef") {
		t.Fatalf("expected mismatched signature to fail")
	}
}
