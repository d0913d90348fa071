package api

import (
	"github.com/zoom-oss/rtms-ingestion/pkg/database"
	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string                  `json:"status"`
	Database *database.HealthStatus  `json:"database,omitempty"`
}

// MeetingSpeakersResponse is returned by GET /api/meeting/:numericId/speakers.
type MeetingSpeakersResponse struct {
	MeetingID int64           `json:"meeting_id"`
	UUID      string          `json:"uuid"`
	Speakers  []SpeakerSummary `json:"speakers"`
}

// SpeakerSummary is one entry of MeetingSpeakersResponse.Speakers.
type SpeakerSummary struct {
	SpeakerID     string   `json:"speaker_id"`
	RecentSummary string   `json:"recent_summary"`
	Topics        []string `json:"topics,omitempty"`
	SegmentCount  int      `json:"segment_count"`
}

// SpeakerContextResponse is returned by GET /api/speaker/:speakerId/context.
type SpeakerContextResponse struct {
	SpeakerID      string   `json:"speaker_id"`
	MeetingUUID    string   `json:"meeting_id,omitempty"`
	ContextSummary *string  `json:"context_summary"`
	Topics         []string `json:"topics,omitempty"`
	SegmentCount   int      `json:"segment_count,omitempty"`
}

// ChatResponse is returned by POST /api/chat/:speakerId.
type ChatResponse struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
}

// SearchHit is one entry of SemanticSearchResponse.Hits.
type SearchHit struct {
	ChunkID    string   `json:"chunk_id"`
	MeetingID  string   `json:"meeting_id"`
	Text       string   `json:"text"`
	SpeakerIDs []string `json:"speaker_ids"`
}

// SemanticSearchResponse is returned by POST /api/semantic-search.
type SemanticSearchResponse struct {
	Hits []SearchHit `json:"hits"`
}

// ChunksResponse is returned by GET /api/chunks/:meetingId.
type ChunksResponse struct {
	Chunks []database.Chunk `json:"chunks"`
}

// ArchiveManifest is returned by GET /api/admin/streams/:streamId/archive.
// It describes what was negotiated and observed for a stream without
// decoding or muxing any media — offline archival of the raw packet
// stream is a separate, out-of-process concern this manifest only
// points at.
type ArchiveManifest struct {
	StreamID      string             `json:"stream_id"`
	MeetingUUID   string             `json:"meeting_id"`
	Product       string             `json:"product"`
	EffectiveMask []string           `json:"effective_mask"`
	MediaParams   *wire.MediaParams  `json:"media_params,omitempty"`
	FirstPacketTS int64              `json:"first_packet_ts,omitempty"`
	LastPacketTS  int64              `json:"last_packet_ts,omitempty"`
	RTTMillis     int64              `json:"rtt_millis"`
	TerminalError string             `json:"terminal_error,omitempty"`
}
