// Package router implements the Event Router: the webhook dispatch
// table that turns a vendor event name and payload into either a
// synchronous url_validation response or a new/torn-down Stream
// Session.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zoom-oss/rtms-ingestion/pkg/registry"
	"github.com/zoom-oss/rtms-ingestion/pkg/signature"
	"github.com/zoom-oss/rtms-ingestion/pkg/stream"
	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

// products is the fixed set of vendor products the router recognizes
// in "<product>.rtms_started" / "<product>.rtms_stopped" event names.
var products = map[string]stream.ProductKind{
	"meeting":       stream.ProductMeeting,
	"webinar":       stream.ProductWebinar,
	"session":       stream.ProductVideoSDK,
	"contactcenter": stream.ProductContactCenter,
	"phone":         stream.ProductPhone,
}

// CredentialResolver looks up the OAuth credential to sign handshakes
// for a product, falling back to the "meeting" credential when a
// product has none of its own configured.
type CredentialResolver interface {
	Resolve(product stream.ProductKind) (stream.Credential, bool)
}

// SessionFactory builds a new Stream Session; handleStarted then calls
// Connect on it. A function type so tests can substitute a fake
// instead of dialing a real vendor signaling server.
type SessionFactory func(cfg stream.Config) *stream.Session

// Router dispatches webhook events. One Router instance serves every
// meeting; rtms_started events race each other only when two webhooks
// name the same stream ID, which handleStarted treats as a no-op repeat.
type Router struct {
	registry   *registry.Registry
	creds      CredentialResolver
	newSession SessionFactory
	logger     *slog.Logger

	// transcripts, broadcaster, and store are optional collaborators,
	// wired after construction via Set*. Nil is a valid, inert state —
	// tests that only exercise webhook dispatch need none of them.
	transcripts TranscriptSink
	broadcaster Broadcaster
	store       MeetingStore

	mediaMask         wire.Mask
	fillerEnabled     bool
	reconnectDebounce time.Duration
	keepAliveTimeout  time.Duration

	mu       sync.Mutex
	starting map[string]bool // stream ids with a handshake in flight
}

// Options carries the configuration-driven session parameters applied
// to every Stream Session the router creates from an rtms_started
// event. The zero value reproduces the Session's own documented
// defaults.
type Options struct {
	MediaMask         wire.Mask
	FillerEnabled     bool
	ReconnectDebounce time.Duration
	KeepAliveTimeout  time.Duration
}

// New constructs a Router. newSession defaults to stream.NewSession
// if nil.
func New(reg *registry.Registry, creds CredentialResolver, newSession SessionFactory, logger *slog.Logger, opts Options) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if newSession == nil {
		newSession = func(cfg stream.Config) *stream.Session {
			return stream.NewSession(cfg, logger)
		}
	}
	mediaMask := opts.MediaMask
	if mediaMask == 0 {
		mediaMask = wire.MediaAll
	}
	return &Router{
		registry:          reg,
		creds:             creds,
		newSession:        newSession,
		logger:            logger,
		mediaMask:         mediaMask,
		fillerEnabled:     opts.FillerEnabled,
		reconnectDebounce: opts.ReconnectDebounce,
		keepAliveTimeout:  opts.KeepAliveTimeout,
		starting:          make(map[string]bool),
	}
}

// ValidationRequest is the endpoint.url_validation payload.
type ValidationRequest struct {
	PlainToken string `json:"plainToken"`
}

// ValidationResponse is the synchronous reply to url_validation.
type ValidationResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// StreamEventPayload is the payload shape for rtms_started/rtms_stopped.
type StreamEventPayload struct {
	MeetingUUID      string            `json:"meeting_uuid"`
	MeetingNumericID int64             `json:"meeting_id,omitempty"`
	RTMSStreamID     string            `json:"rtms_stream_id"`
	ServerURLs       map[string]string `json:"server_urls,omitempty"`
}

// HandleEvent dispatches one webhook event by name. secretToken is the
// product's secret token, used only for the url_validation response.
func (r *Router) HandleEvent(ctx context.Context, name string, secretToken string, rawPayload json.RawMessage) (interface{}, error) {
	if name == "endpoint.url_validation" {
		var req ValidationRequest
		if err := json.Unmarshal(rawPayload, &req); err != nil {
			return nil, fmt.Errorf("router: malformed url_validation payload: %w", err)
		}
		return ValidationResponse{
			PlainToken:     req.PlainToken,
			EncryptedToken: signature.ValidateURLResponse(req.PlainToken, secretToken),
		}, nil
	}

	product, action, ok := splitEventName(name)
	if !ok {
		r.logger.Warn("ignoring unrecognized webhook event", "event", name)
		return nil, nil
	}

	var payload StreamEventPayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		return nil, fmt.Errorf("router: malformed %s payload: %w", name, err)
	}

	switch action {
	case "rtms_started":
		r.handleStarted(ctx, product, payload)
	case "rtms_stopped":
		r.registry.Remove(payload.RTMSStreamID)
		if r.transcripts != nil {
			r.transcripts.EndMeeting(payload.MeetingUUID)
		}
	default:
		r.logger.Warn("ignoring unrecognized webhook action", "event", name)
	}
	return nil, nil
}

func (r *Router) handleStarted(ctx context.Context, product stream.ProductKind, payload StreamEventPayload) {
	streamID := payload.RTMSStreamID

	r.mu.Lock()
	if r.registry.Has(streamID) || r.starting[streamID] {
		r.mu.Unlock()
		r.logger.Warn("rtms_started for a stream already active or initializing, ignoring", "stream_id", streamID)
		return
	}
	r.starting[streamID] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.starting, streamID)
		r.mu.Unlock()
	}()

	cred, ok := r.creds.Resolve(product)
	if !ok {
		r.logger.Error("no credential configured for product, dropping rtms_started", "product", product, "stream_id", streamID)
		return
	}

	if r.store != nil {
		if err := r.store.EnsureMeeting(ctx, payload.MeetingUUID, payload.MeetingNumericID, string(product)); err != nil {
			r.logger.Error("failed to write through meeting id mapping, dropping rtms_started", "stream_id", streamID, "error", err)
			return
		}
	}

	signalingURL := payload.ServerURLs["signaling"]
	cfg := stream.Config{
		StreamID:          streamID,
		MeetingUUID:       payload.MeetingUUID,
		MeetingNumericID:  payload.MeetingNumericID,
		Product:           product,
		Credential:        cred,
		RequestedMask:     r.mediaMask,
		SignalingURL:      signalingURL,
		FillerEnabled:     r.fillerEnabled,
		ReconnectDebounce: r.reconnectDebounce,
		KeepAliveTimeout:  r.keepAliveTimeout,
	}
	sess := r.newSession(cfg)
	r.registry.Add(streamID, payload.MeetingUUID, sess)
	go r.pumpEvents(sess, payload.MeetingUUID)

	if err := sess.Connect(ctx); err != nil {
		r.logger.Error("stream session connect failed", "stream_id", streamID, "error", err)
	}
}

// ProductForEvent extracts the product prefix from a webhook event
// name ("<product>.<action>"), for callers that need to resolve a
// credential (and its secret token) before HandleEvent runs — the
// webhook signature check happens ahead of dispatch.
func ProductForEvent(name string) (stream.ProductKind, bool) {
	product, _, ok := splitEventName(name)
	return product, ok
}

func splitEventName(name string) (stream.ProductKind, string, bool) {
	for prefix, kind := range products {
		dot := len(prefix)
		if len(name) > dot && name[:dot] == prefix && name[dot] == '.' {
			return kind, name[dot+1:], true
		}
	}
	return "", "", false
}
