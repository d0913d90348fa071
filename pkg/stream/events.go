package stream

import (
	"time"

	"github.com/zoom-oss/rtms-ingestion/pkg/rtmserr"
	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

// Event is the tagged variant every inbound message or state transition
// produces. Consumers subscribe by tag (a type switch), not by
// inheritance: each concrete type below exposes only the fields its
// own capability carries, rather than one struct with every field any
// event might need.
type Event interface {
	isStreamEvent()
	StreamID() string
}

type base struct {
	streamID string
}

func (b base) StreamID() string { return b.streamID }

// MediaEvent carries an audio/video/sharescreen frame.
type MediaEvent struct {
	base
	MediaType wire.Mask
	Buffer    []byte
	UserID    string
	UserName  string
	Timestamp int64
	MeetingID string
	Product   ProductKind
}

func (MediaEvent) isStreamEvent() {}

// TranscriptEvent carries a transcript frame. Buffer is absent by
// design (transcript frames carry text, not raw media).
type TranscriptEvent struct {
	base
	UserID    string
	UserName  string
	Timestamp int64
	MeetingID string
	Product   ProductKind
	Text      string
	StartTime int64
	EndTime   int64
	Language  string
	Attribute string
}

func (TranscriptEvent) isStreamEvent() {}

// ChatEvent carries a chat frame.
type ChatEvent struct {
	base
	UserID    string
	UserName  string
	Timestamp int64
	MeetingID string
	Text      string
}

func (ChatEvent) isStreamEvent() {}

// SignalingEvent carries a non-media signaling event (active speaker
// change, join, leave, sharing start/stop).
type SignalingEvent struct {
	base
	EventType wire.SignalingEventType
	Data      map[string]interface{}
}

func (SignalingEvent) isStreamEvent() {}

// StreamStateChangedEvent mirrors msg_type=8.
type StreamStateChangedEvent struct {
	base
	State  wire.StreamState
	Reason wire.StreamStateReason
}

func (StreamStateChangedEvent) isStreamEvent() {}

// SessionStateChangedEvent mirrors msg_type=9.
type SessionStateChangedEvent struct {
	base
	State int
}

func (SessionStateChangedEvent) isStreamEvent() {}

// ErrorEvent carries a categorized, retry-aware error.
type ErrorEvent struct {
	base
	Err *rtmserr.RTMSError
	At  time.Time
}

func (ErrorEvent) isStreamEvent() {}
