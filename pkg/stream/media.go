package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/zoom-oss/rtms-ingestion/pkg/filler"
	"github.com/zoom-oss/rtms-ingestion/pkg/rtmserr"
	"github.com/zoom-oss/rtms-ingestion/pkg/signature"
	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

// mediaSub owns one media-type sub-socket for the lifetime of its
// session generation. It holds a non-owning back-reference to the
// parent Session purely to emit events and record stats; the
// generation it was created with lets it recognize a session that has
// since been torn down by a reconnect and exit quietly instead of
// emitting onto a channel nobody is reading.
type mediaSub struct {
	session    *Session
	mediaType  wire.Mask
	url        string
	generation int
	logger     *slog.Logger

	conn   Conn
	filler *filler.Filler
}

func newMediaSub(s *Session, mt wire.Mask, url string, gen int) *mediaSub {
	return &mediaSub{
		session:    s,
		mediaType:  mt,
		url:        url,
		generation: gen,
		logger:     s.logger.With("media_type", mt.Name()),
	}
}

// run dials, performs the media handshake, and on success starts the
// read loop and (if configured) a filler. On handshake failure it
// retries only this sub-socket after the reconnect debounce, leaving
// the rest of the session untouched, per the "degrade one media type,
// not the whole stream" rule.
func (m *mediaSub) run(ctx context.Context) {
	for {
		if m.stale() {
			return
		}
		if err := m.connectOnce(ctx); err != nil {
			m.logger.Warn("media handshake failed, retrying this sub-socket", "error", err)
			select {
			case <-time.After(m.session.cfg.ReconnectDebounce):
				continue
			case <-ctx.Done():
				return
			}
		}
		return
	}
}

func (m *mediaSub) stale() bool {
	return m.session.currentGeneration() != m.generation
}

func (m *mediaSub) connectOnce(ctx context.Context) error {
	conn, err := m.session.dialer.Dial(ctx, m.url)
	if err != nil {
		return rtmserr.Wrap(rtmserr.CategoryNetwork, "media dial failed", err)
	}

	params := m.negotiatedParams()
	sig := signature.Sign(m.session.cfg.Credential.ClientID, m.session.cfg.MeetingUUID, m.session.cfg.StreamID, m.session.cfg.Credential.ClientSecret)
	req := wire.MediaHandshakeRequest{
		MsgType:      wire.MsgMediaHandshakeRequest,
		MeetingUUID:  m.session.cfg.MeetingUUID,
		RTMSStreamID: m.session.cfg.StreamID,
		Signature:    sig,
		MediaType:    m.mediaType,
		MediaParams:  params,
	}
	payload, err := wire.Encode(req)
	if err != nil {
		conn.Close()
		return rtmserr.Wrap(rtmserr.CategoryRequest, "failed to encode media handshake", err)
	}
	if err := conn.Send(ctx, payload); err != nil {
		conn.Close()
		return rtmserr.Wrap(rtmserr.CategoryNetwork, "failed to send media handshake", err)
	}
	raw, err := conn.Recv(ctx)
	if err != nil {
		conn.Close()
		return rtmserr.Wrap(rtmserr.CategoryNetwork, "failed to read media handshake response", err)
	}
	msgType, decoded, err := wire.Decode(raw)
	if err != nil || msgType != wire.MsgMediaHandshakeResponse {
		conn.Close()
		return rtmserr.New(rtmserr.CategoryProtocol, "unexpected media handshake reply")
	}
	resp := decoded.(*wire.MediaHandshakeResponse)
	if resp.StatusCode != 0 {
		conn.Close()
		return rtmserr.FromStatusCode(resp.StatusCode)
	}

	m.conn = conn
	if ready, err := wire.Encode(wire.MediaReadyNotification{MsgType: wire.MsgMediaReady, MediaType: m.mediaType}); err == nil {
		_ = conn.Send(ctx, ready)
	}

	if m.session.cfg.FillerEnabled && (m.mediaType == wire.MediaAudio || m.mediaType == wire.MediaVideo) {
		m.filler = m.newFiller()
		go m.filler.Run(ctx)
		go m.pumpFiller()
	}

	go m.readLoop(ctx)
	return nil
}

func (m *mediaSub) negotiatedParams() *wire.MediaParams {
	switch m.mediaType {
	case wire.MediaAudio:
		return &wire.MediaParams{AudioSendRate: m.session.cfg.AudioSendRateMS}
	case wire.MediaVideo:
		return &wire.MediaParams{VideoFPS: m.session.cfg.VideoFPS}
	default:
		return nil
	}
}

func (m *mediaSub) newFiller() *filler.Filler {
	switch m.mediaType {
	case wire.MediaAudio:
		return filler.NewAudio(m.session.cfg.AudioSendRateMS, m.session.cfg.AudioPreroll, m.logger)
	case wire.MediaVideo:
		return filler.NewVideo(m.session.cfg.VideoFPS, m.session.cfg.VideoPreroll, m.logger)
	default:
		return nil
	}
}

// pumpFiller relays the filler's paced output onto the session's event
// stream, tagging each frame with this sub-socket's media type.
func (m *mediaSub) pumpFiller() {
	for frame := range m.filler.Output() {
		if m.stale() {
			return
		}
		m.session.emit(MediaEvent{
			base:      base{m.session.cfg.StreamID},
			MediaType: m.mediaType,
			Buffer:    frame.Payload,
			Timestamp: frame.Timestamp,
			MeetingID: m.session.cfg.MeetingUUID,
			Product:   m.session.cfg.Product,
		})
	}
}

// readLoop owns conn for its lifetime; real packets are either handed
// to the filler for pacing or emitted directly when no filler is
// configured for this media type (share, transcript, chat).
func (m *mediaSub) readLoop(ctx context.Context) {
	defer m.conn.Close()
	for {
		raw, err := m.conn.Recv(ctx)
		if err != nil {
			if m.stale() {
				return
			}
			m.logger.Warn("media socket lost, reconnecting this sub-socket", "error", err)
			m.run(ctx)
			return
		}
		msgType, decoded, err := wire.Decode(raw)
		if err != nil {
			m.logger.Warn("dropping malformed media frame", "error", err)
			continue
		}
		switch msgType {
		case wire.MsgAudio, wire.MsgVideo, wire.MsgShare:
			p := decoded.(*wire.MediaPayload)
			m.handleMediaPayload(p)
		case wire.MsgTranscript:
			t := decoded.(*wire.TranscriptPayload)
			m.session.recordPacket(t.Timestamp)
			data, _ := decodeMediaData(t.Content)
			text := string(data)
			m.session.emit(TranscriptEvent{
				base:      base{m.session.cfg.StreamID},
				UserID:    t.UserID,
				UserName:  t.UserName,
				Timestamp: t.Timestamp,
				MeetingID: m.session.cfg.MeetingUUID,
				Product:   m.session.cfg.Product,
				Text:      text,
				StartTime: t.StartTime,
				EndTime:   t.EndTime,
				Language:  t.Language,
				Attribute: t.Attribute,
			})
		case wire.MsgChat:
			c := decoded.(*wire.ChatPayload)
			m.session.recordPacket(c.Timestamp)
			m.session.emit(ChatEvent{
				base:      base{m.session.cfg.StreamID},
				UserID:    c.UserID,
				UserName:  c.UserName,
				Timestamp: c.Timestamp,
				MeetingID: m.session.cfg.MeetingUUID,
				Text:      c.Text,
			})
		case wire.MsgKeepAliveRequest:
			ka := decoded.(*wire.KeepAliveRequest)
			if b, err := wire.Encode(wire.KeepAliveResponse{MsgType: wire.MsgKeepAliveResponse, Timestamp: ka.Timestamp}); err == nil {
				_ = m.conn.Send(ctx, b)
			}
		default:
			m.logger.Debug("ignoring unexpected media msg_type", "msg_type", msgType)
		}
	}
}

func (m *mediaSub) handleMediaPayload(p *wire.MediaPayload) {
	m.session.recordPacket(p.Timestamp)
	data, err := decodeMediaData(p.Content)
	if err != nil {
		m.logger.Warn("dropping media frame with undecodable payload", "error", err)
		return
	}
	if m.filler != nil {
		m.filler.Push(filler.Packet{Timestamp: p.Timestamp, Payload: data})
		return
	}
	m.session.emit(MediaEvent{
		base:      base{m.session.cfg.StreamID},
		MediaType: m.mediaType,
		Buffer:    data,
		UserID:    p.UserID,
		UserName:  p.UserName,
		Timestamp: p.Timestamp,
		MeetingID: m.session.cfg.MeetingUUID,
		Product:   m.session.cfg.Product,
	})
}

// close tears down this sub-socket's connection and filler. Called by
// the owning Session during teardown.
func (m *mediaSub) close() {
	if m.filler != nil {
		m.filler.Stop(m.session.Stats().LastPacketTS)
	}
	if m.conn != nil {
		m.conn.Close()
	}
}
