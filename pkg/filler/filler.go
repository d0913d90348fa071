// Package filler implements the paced jitter/gap fillers shared by the
// audio and video media sub-sockets: an ordered arrival buffer, a
// fixed-rate tick loop, and the re-sync/drop/filler decision tree from
// the ingestion spec. Audio and video differ only in their tick period
// and preroll payload (see audio.go, video.go) — the emission interface
// is identical either way, so a deployment can also run media
// sub-sockets in passthrough mode (no Filler at all) without changing
// any downstream code.
package filler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Kind distinguishes a real media frame from a synthesized filler
// frame in the emitted stream.
type Kind int

// Frame kinds.
const (
	KindReal Kind = iota
	KindFiller
)

// Packet is one arrived media frame, ordered by Timestamp (ms, the same
// units as the wire protocol's timestamp fields).
type Packet struct {
	Timestamp int64
	Payload   []byte
}

// Frame is one emitted output frame: either a real packet passed
// through unchanged, or a synthesized filler (silence/black) frame.
type Frame struct {
	Kind      Kind
	Timestamp int64
	Payload   []byte
}

// Config parameterizes a Filler. FrameDuration is the pacing interval:
// sendRate ms for audio, 1000/fps ms for video. Preroll is the
// pre-rolled payload emitted for synthesized frames (silence for audio,
// a black/I-frame for video).
type Config struct {
	Kind          string // "audio" | "video", used only for logging
	FrameDuration time.Duration
	Preroll       []byte
	Logger        *slog.Logger
}

// Filler paces a single media type's output at a fixed rate, smoothing
// arrival jitter and filling gaps with Preroll frames.
type Filler struct {
	cfg Config

	mu          sync.Mutex
	buf         []Packet
	initialized bool
	expected    int64
	endTime     int64
	hasEndTime  bool

	pushCh chan Packet
	stopCh chan struct{}
	doneCh chan struct{}
	out    chan Frame

	lastFillerLog time.Time
	lastRealLog   time.Time
}

// New creates a Filler from cfg. The returned Filler is inert until Run
// is called.
func New(cfg Config) *Filler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Logger = logger
	return &Filler{
		cfg:    cfg,
		pushCh: make(chan Packet, 256),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		out:    make(chan Frame, 256),
	}
}

// Output returns the channel on which paced frames are emitted. The
// channel is closed when Run returns.
func (f *Filler) Output() <-chan Frame {
	return f.out
}

// Push enqueues a newly arrived real packet for pacing. Safe to call
// from any goroutine; non-blocking up to the internal buffer capacity.
func (f *Filler) Push(p Packet) {
	select {
	case f.pushCh <- p:
	case <-f.doneCh:
	}
}

// Stop signals the filler to terminate. endTime is the stream's final
// timestamp: if endTime is ahead of the filler's current expected
// cursor, one filler frame per missing tick is emitted up to endTime
// before the filler ceases, per the termination rule.
func (f *Filler) Stop(endTime int64) {
	f.mu.Lock()
	f.endTime = endTime
	f.hasEndTime = true
	f.mu.Unlock()
	close(f.stopCh)
}

// Run executes the tick loop until Stop is called or ctx is cancelled.
// It closes the output channel on return, so callers should range over
// Output() in a separate goroutine.
func (f *Filler) Run(ctx context.Context) {
	defer close(f.out)
	defer close(f.doneCh)

	ticker := time.NewTicker(f.cfg.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			f.drainOnStop()
			return
		case p := <-f.pushCh:
			f.insert(p)
		case <-ticker.C:
			f.tick()
		}
	}
}

// insert adds a packet into the ordered buffer. The fast path appends
// when the new timestamp is at or after the last buffered timestamp;
// otherwise it binary-searches for the insertion point.
func (f *Filler) insert(p Packet) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.buf)
	if n == 0 || p.Timestamp >= f.buf[n-1].Timestamp {
		f.buf = append(f.buf, p)
		return
	}
	idx := sort.Search(n, func(i int) bool { return f.buf[i].Timestamp >= p.Timestamp })
	f.buf = append(f.buf, Packet{})
	copy(f.buf[idx+1:], f.buf[idx:])
	f.buf[idx] = p
}

// frameDurationMS is the configured frame duration expressed in the
// same integer millisecond units as packet timestamps.
func (f *Filler) frameDurationMS() int64 {
	return f.cfg.FrameDuration.Milliseconds()
}

// tick runs one pacing decision. Called only from the Run goroutine, so
// no lock is needed around the decision tree itself (insert/tick never
// run concurrently because both are driven from the same select loop).
func (f *Filler) tick() {
	frameDur := f.frameDurationMS()

	if !f.initialized {
		if len(f.buf) == 0 {
			return // nothing arrived yet; keep waiting
		}
		first := f.pop()
		f.expected = first.Timestamp
		f.initialized = true
		f.emitReal(first)
		f.expected += frameDur
		return
	}

	for len(f.buf) > 0 {
		head := f.buf[0]
		diff := head.Timestamp - f.expected

		switch {
		case abs64(diff) < 3*frameDur:
			f.pop()
			f.emitReal(head)
			f.expected = head.Timestamp + frameDur
			return
		case diff < -10*frameDur:
			f.pop()
			f.logRealRateLimited("large backward jump, re-syncing", head.Timestamp)
			f.emitReal(head)
			f.expected = head.Timestamp + frameDur
			return
		case diff < 0:
			f.pop()
			f.logRealRateLimited("small backward jump, dropping packet", head.Timestamp)
			continue // re-examine the new head within the same tick
		default: // diff > 0
			f.emitFiller()
			f.expected += frameDur
			return
		}
	}

	// Buffer empty and initialized: nothing due yet, emit filler.
	f.emitFiller()
	f.expected += frameDur
}

// pop removes and returns the earliest buffered packet. Caller must
// only invoke this from the Run goroutine.
func (f *Filler) pop() Packet {
	p := f.buf[0]
	f.buf = f.buf[1:]
	return p
}

func (f *Filler) emitReal(p Packet) {
	select {
	case f.out <- Frame{Kind: KindReal, Timestamp: p.Timestamp, Payload: p.Payload}:
	default:
	}
	f.logRealRateLimited("emitted real frame", p.Timestamp)
}

func (f *Filler) emitFiller() {
	select {
	case f.out <- Frame{Kind: KindFiller, Timestamp: f.expected, Payload: f.cfg.Preroll}:
	default:
	}
	f.logFillerRateLimited()
}

func (f *Filler) logFillerRateLimited() {
	now := time.Now()
	if now.Sub(f.lastFillerLog) < time.Second {
		return
	}
	f.lastFillerLog = now
	f.cfg.Logger.Debug("emitted filler frame", "kind", f.cfg.Kind, "expected", f.expected)
}

func (f *Filler) logRealRateLimited(msg string, ts int64) {
	now := time.Now()
	if now.Sub(f.lastRealLog) < 5*time.Second {
		return
	}
	f.lastRealLog = now
	f.cfg.Logger.Debug(msg, "kind", f.cfg.Kind, "timestamp", ts, "expected", f.expected)
}

// drainOnStop implements the termination rule: if endTime is ahead of
// expected, emit one filler per missing frame up to endTime.
func (f *Filler) drainOnStop() {
	if !f.hasEndTime || !f.initialized {
		return
	}
	frameDur := f.frameDurationMS()
	for f.endTime > f.expected {
		f.emitFiller()
		f.expected += frameDur
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
