package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoom-oss/rtms-ingestion/pkg/registry"
	"github.com/zoom-oss/rtms-ingestion/pkg/router"
	"github.com/zoom-oss/rtms-ingestion/pkg/stream"
)

type fakeResolver struct {
	cred stream.Credential
	ok   bool
}

func (f fakeResolver) Resolve(stream.ProductKind) (stream.Credential, bool) { return f.cred, f.ok }
func (f fakeResolver) ResolveDefault() (stream.Credential, bool)            { return f.cred, f.ok }

func newTestServer(creds CredentialResolver) *Server {
	r := router.New(registry.New(10), creds, func(cfg stream.Config) *stream.Session {
		return stream.NewSession(cfg, nil)
	}, nil, router.Options{})
	s := &Server{echo: echo.New(), logger: slog.Default(), router: r, creds: creds}
	s.setupRoutes()
	return s
}

func TestWebhookHandler_URLValidation(t *testing.T) {
	s := newTestServer(fakeResolver{cred: stream.Credential{SecretToken: "s3cr3t"}, ok: true})

	body := `{"event":"endpoint.url_validation","payload":{"plainToken":"abc123"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "abc123")
	assert.Contains(t, rec.Body.String(), "encryptedToken")
}

func TestWebhookHandler_RejectsBadSignature(t *testing.T) {
	s := newTestServer(fakeResolver{cred: stream.Credential{SecretToken: "s3cr3t"}, ok: true})

	body := `{"event":"meeting.rtms_started","payload":{"meeting_uuid":"UUID-A","rtms_stream_id":"S1"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhookTimestampHeader, "1700000000")
	req.Header.Set(webhookSignatureHeader, "v0=deadbeef")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookHandler_AcceptsValidSignature(t *testing.T) {
	s := newTestServer(fakeResolver{cred: stream.Credential{SecretToken: "s3cr3t"}, ok: true})

	body := `{"event":"meeting.rtms_started","payload":{"meeting_uuid":"UUID-A","rtms_stream_id":"S1"}}`
	timestamp := "1700000000"
	valid := "v0=" + hexHMAC("s3cr3t", fmt.Sprintf("v0:%s:%s", timestamp, body))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhookTimestampHeader, timestamp)
	req.Header.Set(webhookSignatureHeader, valid)
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func hexHMAC(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
