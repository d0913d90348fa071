package stream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zoom-oss/rtms-ingestion/pkg/rtmserr"
	"github.com/zoom-oss/rtms-ingestion/pkg/signature"
	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

// Session is one stream's signaling socket plus its media sub-sockets.
// All I/O happens on per-socket goroutines (readLoop below, and one per
// mediaSub); everything those goroutines learn is funneled through
// emit/recordPacket, which only ever touch the small stats block under
// mu. There is no central "run" goroutine serializing state
// transitions — unlike the registry, a session's mutable surface is
// small enough that a narrow mutex around just the stats fields is
// simpler than threading a command channel through every reader, and
// readLoop itself is already single-owner for the signaling state.
type Session struct {
	cfg    Config
	logger *slog.Logger
	dialer Dialer

	events chan Event

	mu            sync.Mutex
	state         State
	generation    int
	effectiveMask wire.Mask
	mediaParams   *wire.MediaParams
	firstPacketTS int64
	lastPacketTS  int64
	rtt           time.Duration
	terminalErr   error
	closed        bool

	conn Conn

	connectOnce sync.Mutex // guards Connect against concurrent invocation

	subsMu sync.Mutex
	subs   map[wire.Mask]*mediaSub

	reconnectMu    sync.Mutex
	reconnectTimer *time.Timer

	runCtx    context.Context
	runCancel context.CancelFunc
}

// NewSession constructs a Session. Connect must be called before any
// media will flow.
func NewSession(cfg Config, logger *slog.Logger) *Session {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = NewDialer()
	}
	return &Session{
		cfg:    cfg,
		logger: logger.With("stream_id", cfg.StreamID, "meeting_uuid", cfg.MeetingUUID),
		dialer: cfg.Dialer,
		events: make(chan Event, 256),
		subs:   make(map[wire.Mask]*mediaSub),
		state:  StateIdle,
	}
}

// Events returns the channel on which every decoded media/signaling
// event, state transition, and error surfaces. Closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the signaling socket's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats takes an immutable snapshot for archival into the Connection
// Registry's history ring.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		StreamID:      s.cfg.StreamID,
		MeetingUUID:   s.cfg.MeetingUUID,
		Product:       s.cfg.Product,
		FirstPacketTS: s.firstPacketTS,
		LastPacketTS:  s.lastPacketTS,
		MediaParams:   s.mediaParams,
		RTT:           s.rtt,
		EffectiveMask: s.effectiveMask,
		TerminalError: s.terminalErr,
		ArchivedAt:    time.Now(),
	}
}

// Connect performs the signaling handshake and, on success, opens a
// media sub-socket for every bit of the effective mask. It is guarded:
// a Connect already in flight (whether the initial attempt or a
// reconnect) makes a concurrent call a no-op.
func (s *Session) Connect(ctx context.Context) error {
	if !s.connectOnce.TryLock() {
		return nil
	}
	defer s.connectOnce.Unlock()

	s.setState(StateConnecting)

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.runCancel != nil {
		s.runCancel()
	}
	s.runCtx, s.runCancel = runCtx, cancel
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	conn, err := s.dialer.Dial(ctx, s.cfg.SignalingURL)
	if err != nil {
		rerr := rtmserr.Wrap(rtmserr.CategoryNetwork, "signaling dial failed", err)
		s.fail(rerr)
		return rerr
	}

	sig := signature.Sign(s.cfg.Credential.ClientID, s.cfg.MeetingUUID, s.cfg.StreamID, s.cfg.Credential.ClientSecret)
	req := wire.SignalingHandshakeRequest{
		MsgType:      wire.MsgSignalingHandshakeRequest,
		MeetingUUID:  s.cfg.MeetingUUID,
		RTMSStreamID: s.cfg.StreamID,
		Signature:    sig,
	}
	payload, err := wire.Encode(req)
	if err != nil {
		conn.Close()
		rerr := rtmserr.Wrap(rtmserr.CategoryRequest, "failed to encode handshake", err)
		s.fail(rerr)
		return rerr
	}
	if err := conn.Send(ctx, payload); err != nil {
		conn.Close()
		rerr := rtmserr.Wrap(rtmserr.CategoryNetwork, "failed to send handshake", err)
		s.fail(rerr)
		return rerr
	}

	raw, err := conn.Recv(ctx)
	if err != nil {
		conn.Close()
		rerr := rtmserr.Wrap(rtmserr.CategoryNetwork, "failed to read handshake response", err)
		s.fail(rerr)
		return rerr
	}
	msgType, decoded, err := wire.Decode(raw)
	if err != nil || msgType != wire.MsgSignalingHandshakeResponse {
		conn.Close()
		rerr := rtmserr.New(rtmserr.CategoryProtocol, "unexpected handshake reply")
		s.fail(rerr)
		return rerr
	}
	resp := decoded.(*wire.SignalingHandshakeResponse)
	if resp.StatusCode != 0 {
		conn.Close()
		rerr := rtmserr.FromStatusCode(resp.StatusCode)
		s.fail(rerr)
		return rerr
	}

	var available wire.Mask
	var serverURLs map[string]string
	if resp.MediaServer != nil {
		serverURLs = resp.MediaServer.ServerURLs
		available = wire.AvailableFromServerURLs(serverURLs)
	}
	effective := wire.Effective(s.cfg.RequestedMask, available)

	s.mu.Lock()
	s.conn = conn
	s.effectiveMask = effective
	s.state = StateAuthenticated
	s.mu.Unlock()

	subReq := wire.EventSubscriptionRequest{
		MsgType: wire.MsgEventSubscription,
		Events:  []wire.SignalingEventType{wire.EventActiveSpeakerChange, wire.EventParticipantJoin, wire.EventParticipantLeave},
	}
	if subPayload, err := wire.Encode(subReq); err == nil {
		_ = conn.Send(ctx, subPayload)
	}

	for _, bit := range effective.Bits() {
		url, ok := serverURLs[bit.Name()]
		if !ok {
			continue
		}
		sub := newMediaSub(s, bit, url, gen)
		s.subsMu.Lock()
		s.subs[bit] = sub
		s.subsMu.Unlock()
		go sub.run(runCtx)
	}

	s.setState(StateStreaming)
	go s.readLoop(runCtx, conn, gen)
	return nil
}

// readLoop owns the signaling socket for its lifetime: it is the only
// goroutine that reads from conn, so no lock is required to interpret
// what it reads.
func (s *Session) readLoop(ctx context.Context, conn Conn, gen int) {
	for {
		raw, err := conn.Recv(ctx)
		if err != nil {
			s.handleReadError(gen, err)
			return
		}
		msgType, decoded, err := wire.Decode(raw)
		if err != nil {
			s.logger.Warn("dropping malformed signaling frame", "error", err)
			continue
		}
		switch msgType {
		case wire.MsgKeepAliveRequest:
			ka := decoded.(*wire.KeepAliveRequest)
			resp := wire.KeepAliveResponse{MsgType: wire.MsgKeepAliveResponse, Timestamp: ka.Timestamp}
			if b, err := wire.Encode(resp); err == nil {
				_ = conn.Send(ctx, b)
			}
		case wire.MsgSignalingEvent:
			ev := decoded.(*wire.SignalingEvent)
			s.emit(SignalingEvent{base: base{s.cfg.StreamID}, EventType: ev.EventType, Data: ev.Data})
		case wire.MsgStreamStateChanged:
			sc := decoded.(*wire.StreamStateChanged)
			s.emit(StreamStateChangedEvent{base: base{s.cfg.StreamID}, State: sc.State, Reason: sc.Reason})
			if sc.State == wire.StreamStateEnded && sc.Reason == wire.MeetingEndedReason {
				s.teardown(gen, nil)
				return
			}
		case wire.MsgSessionStateChanged:
			sc := decoded.(*wire.SessionStateChanged)
			s.emit(SessionStateChangedEvent{base: base{s.cfg.StreamID}, State: sc.State})
		default:
			s.logger.Debug("ignoring unexpected signaling msg_type", "msg_type", msgType)
		}
	}
}

func (s *Session) handleReadError(gen int, err error) {
	s.mu.Lock()
	stale := gen != s.generation
	s.mu.Unlock()
	if stale {
		return // superseded by a later reconnect; this goroutine's work is done
	}
	rerr := rtmserr.Wrap(rtmserr.CategoryConnection, "signaling socket closed", err)
	if !rerr.Retryable() {
		s.fail(rerr)
		return
	}
	s.logger.Warn("signaling socket lost, scheduling reconnect", "error", err)
	s.scheduleReconnect()
}

// scheduleReconnect arms a single non-overlapping debounce timer. A
// reconnect already pending is left untouched rather than reset, so
// flapping connections debounce to one attempt every ReconnectDebounce
// rather than being pushed back indefinitely.
func (s *Session) scheduleReconnect() {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()
	if s.reconnectTimer != nil {
		return
	}
	s.reconnectTimer = time.AfterFunc(s.cfg.ReconnectDebounce, func() {
		s.reconnectMu.Lock()
		s.reconnectTimer = nil
		s.reconnectMu.Unlock()

		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		if err := s.Connect(context.Background()); err != nil {
			s.logger.Error("reconnect attempt failed", "error", err)
		}
	})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) fail(err *rtmserr.RTMSError) {
	s.mu.Lock()
	s.state = StateError
	s.terminalErr = err
	s.mu.Unlock()
	s.emit(ErrorEvent{base: base{s.cfg.StreamID}, Err: err, At: time.Now()})
}

// recordPacket updates the stream-lifetime first/last packet
// timestamps. Called from mediaSub readers, hence the lock.
func (s *Session) recordPacket(ts int64) {
	s.mu.Lock()
	if s.firstPacketTS == 0 || ts < s.firstPacketTS {
		s.firstPacketTS = ts
	}
	if ts > s.lastPacketTS {
		s.lastPacketTS = ts
	}
	s.mu.Unlock()
}

// currentGeneration lets a mediaSub cheaply check whether the session
// it belongs to has since been superseded by a reconnect.
func (s *Session) currentGeneration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("event channel full, dropping event", "type", fmt.Sprintf("%T", ev))
	}
}

// teardown closes the signaling socket and every media sub-socket for
// generation gen, then marks the session closed. cause is nil for a
// clean meeting-ended teardown.
func (s *Session) teardown(gen int, cause *rtmserr.RTMSError) {
	s.mu.Lock()
	if s.generation != gen || s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateClosed
	if cause != nil {
		s.terminalErr = cause
		s.state = StateError
	}
	conn := s.conn
	cancel := s.runCancel
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	s.subsMu.Lock()
	subs := s.subs
	s.subs = make(map[wire.Mask]*mediaSub)
	s.subsMu.Unlock()
	for _, sub := range subs {
		sub.close()
	}

	if cancel != nil {
		cancel()
	}
	close(s.events)
}

// Close tears the session down unconditionally: used by the
// Connection Registry when evicting or by an operator-initiated stop.
func (s *Session) Close() error {
	gen := s.currentGeneration()
	s.teardown(gen, nil)
	return nil
}

var errSessionClosed = errors.New("stream: session closed")

func decodeMediaData(content wire.MediaContent) ([]byte, error) {
	return base64.StdEncoding.DecodeString(content.Data)
}
