// Package wire implements the RTMS signaling/media JSON wire format: the
// tagged message envelope shared by every signaling and media socket,
// and the media subscription bit mask used during handshake negotiation.
package wire

// MsgType tags every signaling/media frame exchanged over a socket.
type MsgType int

// The full set of signaling/media message types.
const (
	MsgSignalingHandshakeRequest  MsgType = 1
	MsgSignalingHandshakeResponse MsgType = 2
	MsgMediaHandshakeRequest      MsgType = 3
	MsgMediaHandshakeResponse     MsgType = 4
	MsgEventSubscription          MsgType = 5
	MsgSignalingEvent             MsgType = 6
	MsgMediaReady                 MsgType = 7
	MsgStreamStateChanged         MsgType = 8
	MsgSessionStateChanged        MsgType = 9
	MsgKeepAliveRequest           MsgType = 12
	MsgKeepAliveResponse          MsgType = 13
	MsgAudio                      MsgType = 14
	MsgVideo                      MsgType = 15
	MsgShare                      MsgType = 16
	MsgTranscript                 MsgType = 17
	MsgChat                       MsgType = 18
)

// SignalingEventType names the signaling events the core subscribes to
// via MsgEventSubscription.
type SignalingEventType string

// Signaling event types.
const (
	EventActiveSpeakerChange SignalingEventType = "ACTIVE_SPEAKER_CHANGE"
	EventParticipantJoin     SignalingEventType = "PARTICIPANT_JOIN"
	EventParticipantLeave    SignalingEventType = "PARTICIPANT_LEAVE"
)

// StreamState is carried by msg_type=8 (stream state changed).
type StreamState int

// Stream states the vendor reports.
const (
	StreamStateInactive StreamState = 1
	StreamStateActive   StreamState = 2
	StreamStatePaused   StreamState = 3
	StreamStateEnded    StreamState = 4
)

// StreamStateReason is carried alongside StreamStateEnded to explain why.
type StreamStateReason int

// MeetingEndedReason is the reason code that, combined with
// StreamStateEnded, signals the meeting has ended entirely (as opposed
// to e.g. the stream being individually stopped).
const MeetingEndedReason StreamStateReason = 6

// MediaServerInfo carries the per-media-type server URLs returned in a
// signaling handshake response.
type MediaServerInfo struct {
	ServerURLs map[string]string `json:"server_urls"`
}

// SignalingHandshakeRequest is msg_type=1.
type SignalingHandshakeRequest struct {
	MsgType    MsgType `json:"msg_type"`
	MeetingUUID string `json:"meeting_uuid"`
	RTMSStreamID string `json:"rtms_stream_id"`
	Signature  string  `json:"signature"`
}

// SignalingHandshakeResponse is msg_type=2.
type SignalingHandshakeResponse struct {
	MsgType      MsgType          `json:"msg_type"`
	StatusCode   int              `json:"status_code"`
	MediaServer  *MediaServerInfo `json:"media_server,omitempty"`
	Reason       string           `json:"reason,omitempty"`
}

// MediaParams carries the negotiated media parameters sent in a media
// handshake request and fixed for the lifetime of the stream.
type MediaParams struct {
	AudioSampleRate int `json:"audio_sample_rate,omitempty"` // Hz
	AudioSendRate   int `json:"audio_send_rate,omitempty"`   // ms per frame, default 20
	VideoFPS        int `json:"video_fps,omitempty"`         // default 25
}

// MediaHandshakeRequest is msg_type=3.
type MediaHandshakeRequest struct {
	MsgType      MsgType      `json:"msg_type"`
	MeetingUUID  string       `json:"meeting_uuid"`
	RTMSStreamID string       `json:"rtms_stream_id"`
	Signature    string       `json:"signature"`
	MediaType    Mask         `json:"media_type"`
	MediaParams  *MediaParams `json:"media_params,omitempty"`
}

// MediaHandshakeResponse is msg_type=4.
type MediaHandshakeResponse struct {
	MsgType    MsgType `json:"msg_type"`
	StatusCode int     `json:"status_code"`
	Reason     string  `json:"reason,omitempty"`
}

// EventSubscriptionRequest is msg_type=5.
type EventSubscriptionRequest struct {
	MsgType MsgType              `json:"msg_type"`
	Events  []SignalingEventType `json:"events"`
}

// SignalingEvent is msg_type=6.
type SignalingEvent struct {
	MsgType   MsgType                `json:"msg_type"`
	EventType SignalingEventType     `json:"event_type"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// MediaReadyNotification is msg_type=7.
type MediaReadyNotification struct {
	MsgType   MsgType `json:"msg_type"`
	MediaType Mask    `json:"media_type"`
}

// StreamStateChanged is msg_type=8.
type StreamStateChanged struct {
	MsgType MsgType           `json:"msg_type"`
	State   StreamState       `json:"state"`
	Reason  StreamStateReason `json:"reason"`
}

// SessionStateChanged is msg_type=9.
type SessionStateChanged struct {
	MsgType MsgType `json:"msg_type"`
	State   int     `json:"state"`
}

// KeepAliveRequest is msg_type=12.
type KeepAliveRequest struct {
	MsgType   MsgType `json:"msg_type"`
	Timestamp int64   `json:"timestamp"`
}

// KeepAliveResponse is msg_type=13, the echo of KeepAliveRequest.Timestamp.
type KeepAliveResponse struct {
	MsgType   MsgType `json:"msg_type"`
	Timestamp int64   `json:"timestamp"`
}

// MediaContent carries the base64 payload common to audio/video/share
// frames, under content.data in the wire JSON.
type MediaContent struct {
	Data string `json:"data"`
}

// MediaPayload is msg_type 14/15/16: audio, video, sharescreen frames.
type MediaPayload struct {
	MsgType   MsgType      `json:"msg_type"`
	Content   MediaContent `json:"content"`
	UserID    string       `json:"user_id"`
	UserName  string       `json:"user_name"`
	Timestamp int64        `json:"timestamp"`
}

// TranscriptPayload is msg_type=17.
type TranscriptPayload struct {
	MsgType   MsgType      `json:"msg_type"`
	Content   MediaContent `json:"content"`
	UserID    string       `json:"user_id"`
	UserName  string       `json:"user_name"`
	Timestamp int64        `json:"timestamp"`
	StartTime int64        `json:"start_time"`
	EndTime   int64        `json:"end_time"`
	Language  string       `json:"language,omitempty"`
	Attribute string       `json:"attribute,omitempty"`
}

// ChatPayload is msg_type=18.
type ChatPayload struct {
	MsgType   MsgType `json:"msg_type"`
	Text      string  `json:"text"`
	UserID    string  `json:"user_id"`
	UserName  string  `json:"user_name"`
	Timestamp int64   `json:"timestamp"`
}
