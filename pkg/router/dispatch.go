package router

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zoom-oss/rtms-ingestion/pkg/stream"
	"github.com/zoom-oss/rtms-ingestion/pkg/transcript"
)

// TranscriptSink receives normalised transcript utterances and the
// meeting-ended signal that tears down their buffer. Implemented by
// *transcript.Manager; narrowed here so the router depends on an
// interface rather than the concrete type.
type TranscriptSink interface {
	Append(meetingID string, u transcript.Utterance)
	EndMeeting(meetingID string)
}

// Broadcaster pushes a JSON-encoded live event to a meeting's
// subscribers. Implemented by *adapters.Publisher.
type Broadcaster interface {
	Publish(ctx context.Context, meetingID string, payload []byte) error
}

// SetTranscriptSink wires the transcript destination for TranscriptEvents
// pumped off every Session this router creates. Left unset, transcript
// events are simply dropped after passing through (useful in tests that
// only exercise webhook dispatch).
func (r *Router) SetTranscriptSink(sink TranscriptSink) {
	r.transcripts = sink
}

// SetBroadcaster wires the live-push destination for chat, signaling,
// and state-change events.
func (r *Router) SetBroadcaster(b Broadcaster) {
	r.broadcaster = b
}

// SetStore wires the durable numericId<->meetingUuid mapping write-through
// performed on every rtms_started event.
func (r *Router) SetStore(store MeetingStore) {
	r.store = store
}

// MeetingStore persists the id mapping a Session's Config is resolved
// against. Implemented by *database.Store.
type MeetingStore interface {
	EnsureMeeting(ctx context.Context, meetingUUID string, meetingNumericID int64, product string) error
}

// pumpEvents is the sole consumer of one Session's event channel: it
// drains Events() until the session tears down and closes it, routing
// each tagged variant to its capability-specific destination with a
// type switch rather than a registered-handler table. Runs for the
// lifetime of the session on its own goroutine.
func (r *Router) pumpEvents(sess *stream.Session, meetingUUID string) {
	for ev := range sess.Events() {
		switch e := ev.(type) {
		case stream.TranscriptEvent:
			if r.transcripts != nil {
				r.transcripts.Append(e.MeetingID, transcript.Utterance{
					SpeakerID:   e.UserID,
					SpeakerName: e.UserName,
					Text:        e.Text,
					Timestamp:   e.Timestamp,
				})
			}
		case stream.ChatEvent:
			r.broadcast(e.MeetingID, chatBroadcast{
				Type:      "chat",
				MeetingID: e.MeetingID,
				UserID:    e.UserID,
				UserName:  e.UserName,
				Text:      e.Text,
				Timestamp: e.Timestamp,
			})
		case stream.SignalingEvent:
			r.broadcast(meetingUUID, signalingBroadcast{
				Type:      "event",
				MeetingID: meetingUUID,
				EventType: string(e.EventType),
				Data:      e.Data,
			})
		case stream.StreamStateChangedEvent:
			r.broadcast(meetingUUID, stateBroadcast{
				Type:      "stream_state_changed",
				MeetingID: meetingUUID,
				State:     int(e.State),
				Reason:    int(e.Reason),
			})
		case stream.SessionStateChangedEvent:
			r.broadcast(meetingUUID, stateBroadcast{
				Type:      "session_state_changed",
				MeetingID: meetingUUID,
				State:     e.State,
			})
		case stream.ErrorEvent:
			r.logger.Warn("stream session error event", "meeting_uuid", meetingUUID, "error", e.Err)
			r.broadcast(meetingUUID, errorBroadcast{
				Type:      "error",
				MeetingID: meetingUUID,
				Category:  string(e.Err.Category),
				Message:   e.Err.Error(),
			})
		case stream.MediaEvent:
			// Raw audio/video/sharescreen frames are never pushed to web
			// clients — rendering/decoding raw media is out of scope here.
		}
	}
}

// broadcast is a no-op when no Broadcaster is wired.
func (r *Router) broadcast(meetingID string, event interface{}) {
	if r.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("failed to marshal broadcast event", "meeting_id", meetingID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.broadcaster.Publish(ctx, meetingID, payload); err != nil {
		r.logger.Warn("broadcast publish failed", "meeting_id", meetingID, "error", err)
	}
}

type chatBroadcast struct {
	Type      string `json:"type"`
	MeetingID string `json:"meeting_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type signalingBroadcast struct {
	Type      string                 `json:"type"`
	MeetingID string                 `json:"meeting_id"`
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
}

type stateBroadcast struct {
	Type      string `json:"type"`
	MeetingID string `json:"meeting_id"`
	State     int    `json:"state"`
	Reason    int    `json:"reason,omitempty"`
}

type errorBroadcast struct {
	Type      string `json:"type"`
	MeetingID string `json:"meeting_id"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}
