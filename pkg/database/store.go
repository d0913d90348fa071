package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed default for the Transcript Buffer's
// ChunkWriter and the HTTP API's speaker-context/search needs. It
// satisfies transcript.ChunkWriter structurally; callers needing the
// narrower interface pass a *Store directly.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an already-migrated pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureMeeting upserts a meeting row, used when a stream starts.
func (s *Store) EnsureMeeting(ctx context.Context, meetingUUID string, meetingNumericID int64, product string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO meetings (meeting_uuid, meeting_numeric_id, product)
		VALUES ($1, $2, $3)
		ON CONFLICT (meeting_uuid) DO NOTHING`,
		meetingUUID, meetingNumericID, product)
	if err != nil {
		return fmt.Errorf("database: failed to ensure meeting: %w", err)
	}
	return nil
}

// EndMeeting records the meeting's end timestamp.
func (s *Store) EndMeeting(ctx context.Context, meetingUUID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE meetings SET ended_at = now() WHERE meeting_uuid = $1`, meetingUUID)
	if err != nil {
		return fmt.Errorf("database: failed to end meeting: %w", err)
	}
	return nil
}

// WriteChunk implements transcript.ChunkWriter.
func (s *Store) WriteChunk(ctx context.Context, meetingID, chunkID, text string, speakerIDs, speakerNames []string, startTime, endTime int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transcript_chunks (chunk_id, meeting_uuid, text, speaker_ids, speaker_names, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chunk_id) DO UPDATE SET
			text = EXCLUDED.text,
			speaker_ids = EXCLUDED.speaker_ids,
			speaker_names = EXCLUDED.speaker_names,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time`,
		chunkID, meetingID, text, speakerIDs, speakerNames, startTime, endTime)
	if err != nil {
		return fmt.Errorf("database: failed to write chunk: %w", err)
	}
	return nil
}

// Chunk is one row of transcript_chunks as returned to API callers.
type Chunk struct {
	ChunkID      string
	MeetingID    string
	Text         string
	SpeakerIDs   []string
	SpeakerNames []string
	StartTime    int64
	EndTime      int64
}

// MaxChunksPerMeeting bounds GET /api/chunks/:meetingId, per the
// documented HTTP surface.
const MaxChunksPerMeeting = 1000

// ChunksForMeeting implements the IndexWriter read-side used by the
// GET /api/chunks/:meetingId endpoint: up to MaxChunksPerMeeting
// chunks ordered by start_time.
func (s *Store) ChunksForMeeting(ctx context.Context, meetingID string) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, meeting_uuid, text, speaker_ids, speaker_names, start_time, end_time FROM transcript_chunks
		WHERE meeting_uuid = $1 ORDER BY start_time ASC LIMIT $2`, meetingID, MaxChunksPerMeeting)
	if err != nil {
		return nil, fmt.Errorf("database: failed to query chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ChunkID, &c.MeetingID, &c.Text, &c.SpeakerIDs, &c.SpeakerNames, &c.StartTime, &c.EndTime); err != nil {
			return nil, fmt.Errorf("database: failed to scan chunk row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SpeakerContext is a speaker's accumulated rolling summary, scoped to
// one meeting: the same speaker_id recurring in a different meeting is
// a distinct row.
type SpeakerContext struct {
	SpeakerID     string
	MeetingUUID   string
	RecentSummary string
	Topics        []string
	SegmentCount  int
}

// UpsertSpeakerContext records a speaker's latest summary for one
// meeting, as produced by a transcript.Summariser call. segmentCount is
// the caller's already-cumulative count for (meetingUUID, speakerID),
// so this simply overwrites rather than accumulates.
func (s *Store) UpsertSpeakerContext(ctx context.Context, meetingUUID, speakerID, summary string, topics []string, segmentCount int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO speaker_context (meeting_uuid, speaker_id, recent_summary, topics, segment_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (meeting_uuid, speaker_id) DO UPDATE SET
			recent_summary = EXCLUDED.recent_summary,
			topics = EXCLUDED.topics,
			segment_count = EXCLUDED.segment_count,
			updated_at = now()`,
		meetingUUID, speakerID, summary, topics, segmentCount)
	if err != nil {
		return fmt.Errorf("database: failed to upsert speaker context: %w", err)
	}
	return nil
}

// SpeakerContextFor fetches a speaker's rolling summary within one
// meeting.
func (s *Store) SpeakerContextFor(ctx context.Context, meetingUUID, speakerID string) (SpeakerContext, error) {
	var sc SpeakerContext
	err := s.pool.QueryRow(ctx, `
		SELECT speaker_id, meeting_uuid, recent_summary, topics, segment_count
		FROM speaker_context WHERE meeting_uuid = $1 AND speaker_id = $2`, meetingUUID, speakerID).
		Scan(&sc.SpeakerID, &sc.MeetingUUID, &sc.RecentSummary, &sc.Topics, &sc.SegmentCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return SpeakerContext{}, fmt.Errorf("database: no context for speaker %s in meeting %s: %w", speakerID, meetingUUID, err)
		}
		return SpeakerContext{}, fmt.Errorf("database: failed to fetch speaker context: %w", err)
	}
	return sc, nil
}

// MeetingByNumericID resolves a meeting's UUID from its numeric ID,
// used by GET /api/meeting/:numericId/speakers when no speaker rows
// exist yet to derive the UUID from.
func (s *Store) MeetingByNumericID(ctx context.Context, meetingNumericID int64) (string, error) {
	var uuid string
	err := s.pool.QueryRow(ctx,
		`SELECT meeting_uuid FROM meetings WHERE meeting_numeric_id = $1`, meetingNumericID).
		Scan(&uuid)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", fmt.Errorf("database: no meeting with numeric id %d: %w", meetingNumericID, err)
		}
		return "", fmt.Errorf("database: failed to resolve meeting: %w", err)
	}
	return uuid, nil
}

// SpeakersForMeeting implements the speakers-by-meeting-id lookup used
// by GET /api/meeting/:numericId/speakers.
func (s *Store) SpeakersForMeeting(ctx context.Context, meetingNumericID int64) ([]SpeakerContext, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sc.speaker_id, sc.meeting_uuid, sc.recent_summary, sc.topics, sc.segment_count
		FROM speaker_context sc
		JOIN meetings m ON m.meeting_uuid = sc.meeting_uuid
		WHERE m.meeting_numeric_id = $1`, meetingNumericID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to query speakers for meeting: %w", err)
	}
	defer rows.Close()

	var out []SpeakerContext
	for rows.Next() {
		var sc SpeakerContext
		if err := rows.Scan(&sc.SpeakerID, &sc.MeetingUUID, &sc.RecentSummary, &sc.Topics, &sc.SegmentCount); err != nil {
			return nil, fmt.Errorf("database: failed to scan speaker row: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// SearchFilter narrows Search to one meeting and/or one speaker. Zero
// values mean "no filter" on that dimension.
type SearchFilter struct {
	MeetingUUID string
	SpeakerID   string
}

// Search implements a lexical fallback Searcher over transcript_chunks
// using Postgres full-text search (the GIN index from the initial
// migration). It is intentionally simple — semantic ranking belongs to
// a dedicated vector-search adapter, not the default.
func (s *Store) Search(ctx context.Context, query string, filter SearchFilter, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, meeting_uuid, text, speaker_ids, speaker_names, start_time, end_time FROM transcript_chunks
		WHERE to_tsvector('english', text) @@ plainto_tsquery('english', $1)
		AND ($3 = '' OR meeting_uuid = $3)
		AND ($4 = '' OR $4 = ANY(speaker_ids))
		ORDER BY ts_rank(to_tsvector('english', text), plainto_tsquery('english', $1)) DESC
		LIMIT $2`, query, limit, filter.MeetingUUID, filter.SpeakerID)
	if err != nil {
		return nil, fmt.Errorf("database: search query failed: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ChunkID, &c.MeetingID, &c.Text, &c.SpeakerIDs, &c.SpeakerNames, &c.StartTime, &c.EndTime); err != nil {
			return nil, fmt.Errorf("database: failed to scan search row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
