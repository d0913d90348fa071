package stream

import (
	"context"
	"testing"
	"time"

	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

// fakeConn is a scripted Conn: each Recv call returns the next entry in
// recvQueue, blocking forever once exhausted so readLoop just waits on
// ctx like the real socket would.
type fakeConn struct {
	recvQueue [][]byte
	recvIdx   int
	sent      [][]byte
	closed    bool
}

func (c *fakeConn) Send(_ context.Context, data []byte) error {
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Recv(ctx context.Context) ([]byte, error) {
	if c.recvIdx < len(c.recvQueue) {
		msg := c.recvQueue[c.recvIdx]
		c.recvIdx++
		return msg, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeDialer always returns the same scripted Conn, regardless of URL
// (signaling or media) — tests that only need the signaling socket
// give it an empty server_urls map so no media sub-socket dials.
type fakeDialer struct {
	conn *fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (Conn, error) {
	return d.conn, nil
}

func encodeFrame(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := wire.Encode(v)
	if err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	return b
}

func waitForEvent(t *testing.T, events <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatalf("events channel closed before expected event arrived")
		}
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
		return nil
	}
}

func TestSession_Connect_HandshakeAcceptedThenMeetingEnded(t *testing.T) {
	handshakeResp := encodeFrame(t, wire.SignalingHandshakeResponse{
		MsgType:    wire.MsgSignalingHandshakeResponse,
		StatusCode: 0,
		MediaServer: &wire.MediaServerInfo{
			ServerURLs: map[string]string{},
		},
	})
	streamEnded := encodeFrame(t, wire.StreamStateChanged{
		MsgType: wire.MsgStreamStateChanged,
		State:   wire.StreamStateEnded,
		Reason:  wire.MeetingEndedReason,
	})

	conn := &fakeConn{recvQueue: [][]byte{handshakeResp, streamEnded}}
	dialer := &fakeDialer{conn: conn}

	sess := NewSession(Config{
		StreamID:      "stream-1",
		MeetingUUID:   "meeting-A",
		Product:       ProductMeeting,
		Credential:    Credential{ClientID: "id", ClientSecret: "secret"},
		RequestedMask: wire.MediaTranscript,
		SignalingURL:  "wss://example.invalid/signaling",
		Dialer:        dialer,
	}, nil)

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	ev := waitForEvent(t, sess.Events(), time.Second)
	sc, ok := ev.(StreamStateChangedEvent)
	if !ok {
		t.Fatalf("expected StreamStateChangedEvent, got %T", ev)
	}
	if sc.State != wire.StreamStateEnded || sc.Reason != wire.MeetingEndedReason {
		t.Fatalf("unexpected stream state changed event: %+v", sc)
	}

	// A meeting-ended StreamStateChanged tears the session down and
	// closes Events(); draining confirms no event is dropped silently.
	if _, ok := <-sess.Events(); ok {
		t.Fatalf("expected Events() to be closed after meeting-ended teardown")
	}
	if sess.State() != StateClosed {
		t.Fatalf("expected StateClosed after teardown, got %v", sess.State())
	}
	if !conn.closed {
		t.Fatalf("expected signaling conn to be closed on teardown")
	}
}

func TestSession_Connect_HandshakeRejectedEmitsError(t *testing.T) {
	rejected := encodeFrame(t, wire.SignalingHandshakeResponse{
		MsgType:    wire.MsgSignalingHandshakeResponse,
		StatusCode: 4010,
		Reason:     "invalid signature",
	})
	conn := &fakeConn{recvQueue: [][]byte{rejected}}
	dialer := &fakeDialer{conn: conn}

	sess := NewSession(Config{
		StreamID:      "stream-2",
		MeetingUUID:   "meeting-B",
		Product:       ProductMeeting,
		RequestedMask: wire.MediaTranscript,
		SignalingURL:  "wss://example.invalid/signaling",
		Dialer:        dialer,
	}, nil)

	if err := sess.Connect(context.Background()); err == nil {
		t.Fatalf("expected Connect to return an error on handshake rejection")
	}
	if ev := waitForEvent(t, sess.Events(), time.Second); ev == nil {
		t.Fatalf("expected an ErrorEvent after rejected handshake, got nil")
	} else if _, ok := ev.(ErrorEvent); !ok {
		t.Fatalf("expected an ErrorEvent after rejected handshake, got %T", ev)
	}
	if sess.State() != StateError {
		t.Fatalf("expected StateError after rejected handshake, got %v", sess.State())
	}
	if !conn.closed {
		t.Fatalf("expected conn to be closed after rejected handshake")
	}
}

func TestSession_Connect_ConcurrentCallIsNoOp(t *testing.T) {
	conn := &fakeConn{} // no queued frames: Recv blocks, handshake never completes
	dialer := &fakeDialer{conn: conn}

	sess := NewSession(Config{
		StreamID:      "stream-3",
		MeetingUUID:   "meeting-C",
		Product:       ProductMeeting,
		RequestedMask: wire.MediaTranscript,
		SignalingURL:  "wss://example.invalid/signaling",
		Dialer:        dialer,
	}, nil)

	go func() { _ = sess.Connect(context.Background()) }()
	time.Sleep(10 * time.Millisecond) // let the first Connect take the lock

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("expected a concurrent Connect to be a silent no-op, got error: %v", err)
	}
}

func TestSession_Close_IsIdempotent(t *testing.T) {
	sess := NewSession(Config{
		StreamID:      "stream-4",
		MeetingUUID:   "meeting-D",
		Product:       ProductMeeting,
		RequestedMask: wire.MediaTranscript,
	}, nil)

	if err := sess.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if sess.State() != StateClosed {
		t.Fatalf("expected StateClosed, got %v", sess.State())
	}
}

func TestSession_Stats_ReflectsEffectiveMask(t *testing.T) {
	handshakeResp := encodeFrame(t, wire.SignalingHandshakeResponse{
		MsgType:    wire.MsgSignalingHandshakeResponse,
		StatusCode: 0,
		MediaServer: &wire.MediaServerInfo{
			ServerURLs: map[string]string{},
		},
	})
	conn := &fakeConn{recvQueue: [][]byte{handshakeResp}}
	dialer := &fakeDialer{conn: conn}

	sess := NewSession(Config{
		StreamID:      "stream-5",
		MeetingUUID:   "meeting-E",
		Product:       ProductMeeting,
		RequestedMask: wire.MediaTranscript,
		SignalingURL:  "wss://example.invalid/signaling",
		Dialer:        dialer,
	}, nil)

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	// No server_urls were offered for any media type, so nothing in the
	// requested mask survives negotiation.
	deadline := time.Now().Add(time.Second)
	for sess.State() != StateStreaming && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	stats := sess.Stats()
	if stats.EffectiveMask != 0 {
		t.Fatalf("expected empty effective mask when no server_urls are offered, got %v", stats.EffectiveMask)
	}
	if stats.StreamID != "stream-5" || stats.MeetingUUID != "meeting-E" {
		t.Fatalf("unexpected stats identity fields: %+v", stats)
	}

	_ = sess.Close()
}
