// Package transcript implements the Transcript Buffer: a per-meeting
// utterance accumulator that periodically summarizes each speaker's
// recent contribution and flushes accumulated text into chunks for
// indexing, on a timer or once a word-count threshold is reached.
package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Defaults for the three timer types, per the documented behavior.
const (
	DefaultSummaryInterval = 30 * time.Second
	DefaultSpeakerIdle     = 10 * time.Second
	DefaultChunkInterval   = 60 * time.Second
	DefaultChunkWordLimit  = 500
)

// Utterance is one transcript segment appended to a meeting's buffer.
type Utterance struct {
	SpeakerID   string
	SpeakerName string
	Text        string
	Timestamp   int64
}

// SummaryResult is what a Summariser call produces for one speaker's
// batch of recent segments: a short rolling summary plus the topic
// keywords the batch touched on.
type SummaryResult struct {
	Summary string
	Topics  []string
}

// Summariser produces a running summary for one speaker's recent
// segments. Implemented by an HTTP-backed completion client in
// production; narrow by design so tests can fake it.
type Summariser interface {
	Summarize(ctx context.Context, meetingID, speakerID, speakerName, recentText string, segmentCount int) (SummaryResult, error)
}

// ChunkWriter persists a flushed chunk of transcript text for later
// retrieval/search. Implemented by the Postgres-backed store.
// startTime/endTime are the first and last utterance timestamps
// joined into the chunk. speakerIDs and speakerNames are index-aligned.
type ChunkWriter interface {
	WriteChunk(ctx context.Context, meetingID, chunkID, text string, speakerIDs, speakerNames []string, startTime, endTime int64) error
}

// ContextWriter persists a speaker's rolling summary for later lookup
// by the per-speaker context/chat endpoints. segmentCount is the
// speaker's cumulative count within meetingUUID, not just this batch.
type ContextWriter interface {
	UpsertSpeakerContext(ctx context.Context, meetingUUID, speakerID, summary string, topics []string, segmentCount int) error
}

// Broadcaster pushes a JSON-encoded live event to a meeting's
// subscribers. Summarize and chunk events are fanned out this way so
// a connected client sees enrichment results as they are produced,
// not only on the next poll of the HTTP API.
type Broadcaster interface {
	Publish(ctx context.Context, meetingID string, payload []byte) error
}

// Config parameterizes a Buffer's timers.
type Config struct {
	SummaryInterval time.Duration
	SpeakerIdle     time.Duration
	ChunkInterval   time.Duration
	ChunkWordLimit  int
	Summariser      Summariser
	ChunkWriter     ChunkWriter
	ContextWriter   ContextWriter
	Broadcaster     Broadcaster
	Logger          *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.SummaryInterval <= 0 {
		c.SummaryInterval = DefaultSummaryInterval
	}
	if c.SpeakerIdle <= 0 {
		c.SpeakerIdle = DefaultSpeakerIdle
	}
	if c.ChunkInterval <= 0 {
		c.ChunkInterval = DefaultChunkInterval
	}
	if c.ChunkWordLimit <= 0 {
		c.ChunkWordLimit = DefaultChunkWordLimit
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// speakerState tracks one speaker's segments pending summarization and
// their cumulative summarized-segment count, which only ever advances.
type speakerState struct {
	name            string
	segments        []string
	cumulativeCount int
	idleTimer       *time.Timer
}

// Buffer accumulates one meeting's transcript. Safe for concurrent
// Append calls; the periodic timers and idle timers all funnel through
// the same mutex since they mutate the same pending state.
type Buffer struct {
	meetingID string
	cfg       Config

	mu          sync.Mutex
	speakers    map[string]*speakerState
	pending     []Utterance
	wordCount   int
	chunkSeq    int
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// New constructs a Buffer for one meeting and starts its periodic
// timers. Call Destroy when the meeting ends.
func New(meetingID string, cfg Config) *Buffer {
	cfg = cfg.withDefaults()
	b := &Buffer{
		meetingID: meetingID,
		cfg:       cfg,
		speakers:  make(map[string]*speakerState),
		stopCh:    make(chan struct{}),
	}
	b.wg.Add(2)
	go b.runSummaryTicker()
	go b.runChunkTicker()
	return b
}

// Append records a new utterance, resetting the speaker's idle timer
// and flushing the chunk early if the word-count threshold is crossed.
func (b *Buffer) Append(u Utterance) {
	b.mu.Lock()
	b.pending = append(b.pending, u)
	b.wordCount += len(strings.Fields(u.Text))

	st, ok := b.speakers[u.SpeakerID]
	if !ok {
		st = &speakerState{}
		b.speakers[u.SpeakerID] = st
	}
	st.name = u.SpeakerName
	st.segments = append(st.segments, u.Text)
	if st.idleTimer != nil {
		st.idleTimer.Stop()
	}
	speakerID := u.SpeakerID
	st.idleTimer = time.AfterFunc(b.cfg.SpeakerIdle, func() { b.summarizeSpeaker(speakerID) })

	shouldFlush := b.wordCount >= b.cfg.ChunkWordLimit
	b.mu.Unlock()

	if shouldFlush {
		b.flushChunk()
	}
}

// summarizeSpeaker runs on a speaker's idle timer firing (or on the
// periodic 30s sweep below). It is a no-op if the speaker has no
// unsummarized segments, so a repeat firing after a flush costs
// nothing.
func (b *Buffer) summarizeSpeaker(speakerID string) {
	b.mu.Lock()
	st, ok := b.speakers[speakerID]
	if !ok || len(st.segments) == 0 {
		b.mu.Unlock()
		return
	}
	segments := st.segments
	st.segments = nil
	st.cumulativeCount += len(segments)
	cumulativeCount := st.cumulativeCount
	speakerName := st.name
	b.mu.Unlock()

	if b.cfg.Summariser == nil {
		return
	}
	recentText := strings.Join(segments, " ")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := b.cfg.Summariser.Summarize(ctx, b.meetingID, speakerID, speakerName, recentText, cumulativeCount)
	if err != nil {
		b.cfg.Logger.Warn("speaker summarization failed", "meeting_id", b.meetingID, "speaker_id", speakerID, "error", err)
		return
	}

	if b.cfg.ContextWriter != nil {
		if err := b.cfg.ContextWriter.UpsertSpeakerContext(ctx, b.meetingID, speakerID, result.Summary, result.Topics, cumulativeCount); err != nil {
			b.cfg.Logger.Warn("speaker context persist failed", "meeting_id", b.meetingID, "speaker_id", speakerID, "error", err)
		}
	}
	b.publish(ctx, summarizeEvent{
		Type:         "summarize",
		MeetingID:    b.meetingID,
		SpeakerID:    speakerID,
		SpeakerName:  speakerName,
		RecentText:   recentText,
		SegmentCount: cumulativeCount,
	})
}

// runSummaryTicker sweeps every speaker with pending segments every
// SummaryInterval, independent of each speaker's own idle timer — this
// is the "whichever fires first" half of the summarization rule.
func (b *Buffer) runSummaryTicker() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.SummaryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.mu.Lock()
			ids := make([]string, 0, len(b.speakers))
			for id, st := range b.speakers {
				if len(st.segments) > 0 {
					ids = append(ids, id)
				}
			}
			b.mu.Unlock()
			for _, id := range ids {
				b.summarizeSpeaker(id)
			}
		}
	}
}

// runChunkTicker flushes the pending chunk every ChunkInterval
// regardless of the word-count threshold.
func (b *Buffer) runChunkTicker() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.ChunkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.flushChunk()
		}
	}
}

// flushChunk assembles the pending utterances into one chunk of text
// ("speakerName: text" per line) and writes it via ChunkWriter. A
// no-op if nothing is pending.
func (b *Buffer) flushChunk() {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	pending := b.pending
	b.pending = nil
	b.wordCount = 0
	b.chunkSeq++
	seq := b.chunkSeq
	b.mu.Unlock()

	lines := make([]string, len(pending))
	seen := make(map[string]bool)
	var speakerIDs, speakerNames []string
	for i, u := range pending {
		lines[i] = fmt.Sprintf("%s: %s", u.SpeakerName, u.Text)
		if !seen[u.SpeakerID] {
			seen[u.SpeakerID] = true
			speakerIDs = append(speakerIDs, u.SpeakerID)
			speakerNames = append(speakerNames, u.SpeakerName)
		}
	}
	text := strings.Join(lines, "\n")
	chunkID := fmt.Sprintf("%s-chunk-%d", b.meetingID, seq)
	startTime := pending[0].Timestamp
	endTime := pending[len(pending)-1].Timestamp

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if b.cfg.ChunkWriter != nil {
		if err := b.cfg.ChunkWriter.WriteChunk(ctx, b.meetingID, chunkID, text, speakerIDs, speakerNames, startTime, endTime); err != nil {
			b.cfg.Logger.Warn("chunk flush failed", "meeting_id", b.meetingID, "chunk_id", chunkID, "error", err)
		}
	}
	b.publish(ctx, chunkEvent{
		Type:         "chunk",
		ChunkID:      chunkID,
		MeetingID:    b.meetingID,
		Text:         text,
		SpeakerIDs:   speakerIDs,
		SpeakerNames: speakerNames,
		StartTime:    startTime,
		EndTime:      endTime,
	})
}

// summarizeEvent mirrors the summarize{} payload a client sees on the
// live broadcast channel when a speaker's rolling summary advances.
type summarizeEvent struct {
	Type         string `json:"type"`
	MeetingID    string `json:"meeting_id"`
	SpeakerID    string `json:"speaker_id"`
	SpeakerName  string `json:"speaker_name"`
	RecentText   string `json:"recent_text"`
	SegmentCount int    `json:"segment_count"`
}

// chunkEvent mirrors the chunk{} payload emitted on every flush.
type chunkEvent struct {
	Type         string   `json:"type"`
	ChunkID      string   `json:"chunk_id"`
	MeetingID    string   `json:"meeting_id"`
	Text         string   `json:"text"`
	SpeakerIDs   []string `json:"speaker_ids"`
	SpeakerNames []string `json:"speaker_names"`
	StartTime    int64    `json:"start_time"`
	EndTime      int64    `json:"end_time"`
}

// publish is a no-op when no Broadcaster is wired, so Buffer works
// standalone in tests without a live-push dependency.
func (b *Buffer) publish(ctx context.Context, event interface{}) {
	if b.cfg.Broadcaster == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		b.cfg.Logger.Warn("failed to marshal broadcast event", "meeting_id", b.meetingID, "error", err)
		return
	}
	if err := b.cfg.Broadcaster.Publish(ctx, b.meetingID, payload); err != nil {
		b.cfg.Logger.Warn("broadcast publish failed", "meeting_id", b.meetingID, "error", err)
	}
}

// Destroy stops the timers, flushes any pending work synchronously,
// and releases per-speaker idle timers. Safe to call more than once.
func (b *Buffer) Destroy() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()

	b.mu.Lock()
	for _, st := range b.speakers {
		if st.idleTimer != nil {
			st.idleTimer.Stop()
		}
	}
	ids := make([]string, 0, len(b.speakers))
	for id, st := range b.speakers {
		if len(st.segments) > 0 {
			ids = append(ids, id)
		}
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.summarizeSpeaker(id)
	}
	b.flushChunk()
}
