package wire

import (
	"encoding/json"
	"fmt"
)

// taggedMsgType is used to peek at the msg_type field before deciding
// which concrete struct to unmarshal the full frame into.
type taggedMsgType struct {
	MsgType MsgType `json:"msg_type"`
}

// Decode inspects the msg_type field of a raw signaling/media frame and
// unmarshals it into the matching concrete payload type. The returned
// value's dynamic type is one of the structs in envelope.go. Malformed
// JSON and unrecognized msg_type values are both reported as errors; the
// caller is expected to log at warn and drop the packet per the parse
// failure policy.
func Decode(raw []byte) (MsgType, interface{}, error) {
	var tag taggedMsgType
	if err := json.Unmarshal(raw, &tag); err != nil {
		return 0, nil, fmt.Errorf("wire: malformed frame: %w", err)
	}

	var target interface{}
	switch tag.MsgType {
	case MsgSignalingHandshakeResponse:
		target = &SignalingHandshakeResponse{}
	case MsgMediaHandshakeResponse:
		target = &MediaHandshakeResponse{}
	case MsgSignalingEvent:
		target = &SignalingEvent{}
	case MsgMediaReady:
		target = &MediaReadyNotification{}
	case MsgStreamStateChanged:
		target = &StreamStateChanged{}
	case MsgSessionStateChanged:
		target = &SessionStateChanged{}
	case MsgKeepAliveRequest:
		target = &KeepAliveRequest{}
	case MsgAudio, MsgVideo, MsgShare:
		target = &MediaPayload{}
	case MsgTranscript:
		target = &TranscriptPayload{}
	case MsgChat:
		target = &ChatPayload{}
	default:
		return tag.MsgType, nil, fmt.Errorf("wire: unrecognized msg_type %d", tag.MsgType)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return tag.MsgType, nil, fmt.Errorf("wire: malformed payload for msg_type %d: %w", tag.MsgType, err)
	}
	return tag.MsgType, target, nil
}

// Encode marshals any outbound frame (handshake requests, keep-alive
// echoes, event subscriptions) to its wire JSON representation.
func Encode(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: failed to encode frame: %w", err)
	}
	return b, nil
}
