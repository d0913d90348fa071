// Package stream implements the per-stream Stream Session state
// machine: one signaling socket plus N media sub-sockets, the dual
// handshake protocol, keep-alive discipline, and reconnect policy.
package stream

import (
	"time"

	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

// ProductKind identifies which vendor product a stream belongs to.
type ProductKind string

// The product kinds the core recognizes.
const (
	ProductMeeting       ProductKind = "meeting"
	ProductWebinar       ProductKind = "webinar"
	ProductVideoSDK      ProductKind = "videoSdk"
	ProductContactCenter ProductKind = "contactCenter"
	ProductPhone         ProductKind = "phone"
)

// Credential is the clientId/clientSecret/secretToken triple used to
// sign handshakes for one product.
type Credential struct {
	ClientID     string
	ClientSecret string
	SecretToken  string
}

// State is a signaling or media sub-socket's position in the
// idle → connecting → authenticated → streaming → closed|error
// lifecycle.
type State int

// Socket states.
const (
	StateIdle State = iota
	StateConnecting
	StateAuthenticated
	StateStreaming
	StateClosed
	StateError
)

// String renders a State for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Config parameterizes a Session for its entire lifetime.
type Config struct {
	StreamID          string
	MeetingUUID       string
	MeetingNumericID  int64
	Product           ProductKind
	Credential        Credential
	RequestedMask     wire.Mask
	SignalingURL      string
	FillerEnabled     bool
	ReconnectDebounce time.Duration // default 3s
	KeepAliveTimeout  time.Duration // default 5s
	AudioSendRateMS   int           // default 20
	VideoFPS          int           // default 25
	AudioPreroll      []byte
	VideoPreroll      []byte
	Dialer            Dialer
}

// withDefaults fills in the documented defaults for zero-valued fields.
func (c Config) withDefaults() Config {
	if c.ReconnectDebounce <= 0 {
		c.ReconnectDebounce = 3 * time.Second
	}
	if c.KeepAliveTimeout <= 0 {
		c.KeepAliveTimeout = 5 * time.Second
	}
	if c.AudioSendRateMS <= 0 {
		c.AudioSendRateMS = 20
	}
	if c.VideoFPS <= 0 {
		c.VideoFPS = 25
	}
	return c
}

// Stats is an immutable snapshot of a session's terminal state, taken
// when the Connection Registry archives it into the history ring.
type Stats struct {
	StreamID           string
	MeetingUUID        string
	Product            ProductKind
	FirstPacketTS       int64
	LastPacketTS        int64
	MediaParams        *wire.MediaParams
	RTT                time.Duration
	EffectiveMask      wire.Mask
	TerminalError      error
	ArchivedAt         time.Time
}
