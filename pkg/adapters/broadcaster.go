package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Publisher sends a JSON-encoded event to every subscriber of a
// meeting by NOTIFYing a per-meeting Postgres channel. Implements the
// narrow Broadcaster interfaces of pkg/router and pkg/transcript; the
// HTTP API's push endpoint reads the same channels through the Hub.
type Publisher struct {
	pool *pgxpool.Pool
}

// NewPublisher wraps an already-connected pool for NOTIFY sends.
func NewPublisher(pool *pgxpool.Pool) *Publisher {
	return &Publisher{pool: pool}
}

// Publish implements Broadcaster: it sends payload as a NOTIFY on the
// channel derived from meetingID. Payloads over Postgres's 8000-byte
// NOTIFY limit are the caller's responsibility to avoid — this adapter
// does not chunk.
func (p *Publisher) Publish(ctx context.Context, meetingID string, payload []byte) error {
	channel := channelForMeeting(meetingID)
	_, err := p.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(payload))
	if err != nil {
		return fmt.Errorf("adapters: publish failed: %w", err)
	}
	return nil
}

func channelForMeeting(meetingID string) string {
	return "rtms_meeting_" + sanitizeChannel(meetingID)
}

func sanitizeChannel(s string) string {
	b := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b = append(b, r)
		} else {
			b = append(b, '_')
		}
	}
	return string(b)
}

// Hub fans NOTIFY payloads for a meeting out to every WebSocket client
// currently subscribed to it. One Hub serves the whole process; a
// dedicated receiveLoop goroutine owns the pgx LISTEN connection so
// no lock is needed around WaitForNotification/Exec.
type Hub struct {
	connString string

	mu       sync.RWMutex
	channels map[string]map[string]*websocket.Conn // channel -> connection id -> conn

	conn       *pgx.Conn
	cmdCh      chan listenCmd
	cancelLoop context.CancelFunc
	loopDone   chan struct{}
	logger     *slog.Logger
}

type listenCmd struct {
	sql    string
	result chan error
}

// NewHub constructs a Hub. connString is a dedicated connection string
// for LISTEN (separate from the pooled connections used for queries).
func NewHub(connString string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connString: connString,
		channels:   make(map[string]map[string]*websocket.Conn),
		cmdCh:      make(chan listenCmd, 16),
		logger:     logger,
	}
}

// Start opens the dedicated LISTEN connection and begins the receive
// loop, the sole goroutine that touches conn.
func (h *Hub) Start(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, h.connString)
	if err != nil {
		return fmt.Errorf("adapters: failed to open LISTEN connection: %w", err)
	}
	h.conn = conn

	loopCtx, cancel := context.WithCancel(ctx)
	h.cancelLoop = cancel
	h.loopDone = make(chan struct{})
	go func() {
		defer close(h.loopDone)
		h.receiveLoop(loopCtx)
	}()
	return nil
}

// Stop cancels the receive loop and closes the LISTEN connection.
func (h *Hub) Stop(ctx context.Context) {
	if h.cancelLoop != nil {
		h.cancelLoop()
	}
	if h.loopDone != nil {
		<-h.loopDone
	}
	if h.conn != nil {
		_ = h.conn.Close(ctx)
	}
}

// Subscribe registers a client's conn for a meeting's channel,
// LISTENing on Postgres the first time a given meeting gains a
// subscriber.
func (h *Hub) Subscribe(ctx context.Context, connID, meetingID string, conn *websocket.Conn) error {
	channel := channelForMeeting(meetingID)

	h.mu.Lock()
	clients, exists := h.channels[channel]
	if !exists {
		clients = make(map[string]*websocket.Conn)
		h.channels[channel] = clients
	}
	clients[connID] = conn
	h.mu.Unlock()

	if exists {
		return nil // already LISTENing on this channel
	}
	return h.listen(ctx, channel)
}

// Unsubscribe removes a client from a meeting's channel, UNLISTENing
// on Postgres once the last subscriber leaves.
func (h *Hub) Unsubscribe(ctx context.Context, connID, meetingID string) {
	channel := channelForMeeting(meetingID)

	h.mu.Lock()
	clients, ok := h.channels[channel]
	if ok {
		delete(clients, connID)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
	empty := ok && len(clients) == 0
	h.mu.Unlock()

	if empty {
		h.unlisten(ctx, channel)
	}
}

func (h *Hub) listen(ctx context.Context, channel string) error {
	cmd := listenCmd{sql: "LISTEN " + pgx.Identifier{channel}.Sanitize(), result: make(chan error, 1)}
	select {
	case h.cmdCh <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) unlisten(ctx context.Context, channel string) {
	cmd := listenCmd{sql: "UNLISTEN " + pgx.Identifier{channel}.Sanitize(), result: make(chan error, 1)}
	select {
	case h.cmdCh <- cmd:
		<-cmd.result
	case <-ctx.Done():
	}
}

// receiveLoop is the sole goroutine touching h.conn, avoiding the
// "conn busy" race between WaitForNotification and Exec.
func (h *Hub) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		h.drainPendingCmds(ctx)

		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		notification, err := h.conn.WaitForNotification(waitCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue // timeout or transient error; loop back to drain commands
		}

		h.broadcast(notification.Channel, []byte(notification.Payload))
	}
}

func (h *Hub) drainPendingCmds(ctx context.Context) {
	for {
		select {
		case cmd := <-h.cmdCh:
			_, err := h.conn.Exec(ctx, cmd.sql)
			cmd.result <- err
		default:
			return
		}
	}
}

func (h *Hub) broadcast(channel string, payload []byte) {
	h.mu.RLock()
	clients := h.channels[channel]
	targets := make([]*websocket.Conn, 0, len(clients))
	for _, c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.Write(ctx, websocket.MessageText, payload); err != nil {
			h.logger.Warn("broadcast write failed, dropping client", "channel", channel, "error", err)
		}
		cancel()
	}
}
