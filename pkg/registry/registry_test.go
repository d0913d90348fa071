package registry

import (
	"testing"

	"github.com/zoom-oss/rtms-ingestion/pkg/stream"
	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

func newTestSession(streamID, meetingUUID string) *stream.Session {
	return stream.NewSession(stream.Config{
		StreamID:      streamID,
		MeetingUUID:   meetingUUID,
		Product:       stream.ProductMeeting,
		RequestedMask: wire.MediaAll,
	}, nil)
}

func TestRegistry_AddGetHasRemove(t *testing.T) {
	r := New(3)
	s := newTestSession("stream-1", "meeting-A")
	r.Add("stream-1", "meeting-A", s)

	if !r.Has("stream-1") {
		t.Fatalf("expected stream-1 to be active")
	}
	if got, ok := r.Get("stream-1"); !ok || got != s {
		t.Fatalf("Get returned wrong session: %v, %v", got, ok)
	}
	if r.Size() != 1 {
		t.Fatalf("expected size 1, got %d", r.Size())
	}

	r.Remove("stream-1")
	if r.Has("stream-1") {
		t.Fatalf("expected stream-1 to no longer be active after Remove")
	}
	if r.Size() != 0 {
		t.Fatalf("expected size 0 after Remove, got %d", r.Size())
	}

	// Metadata must remain queryable from history post-removal.
	if _, ok := r.StreamMetadata("stream-1"); !ok {
		t.Fatalf("expected stream-1 metadata to survive in history after Remove")
	}
}

func TestRegistry_FindByMeetingUUID(t *testing.T) {
	r := New(10)
	s1 := newTestSession("s1", "meeting-X")
	s2 := newTestSession("s2", "meeting-X")
	r.Add("s1", "meeting-X", s1)
	r.Add("s2", "meeting-X", s2)

	ids := r.FindByMeetingUUID("meeting-X")
	if len(ids) != 2 {
		t.Fatalf("expected 2 active streams for meeting-X, got %v", ids)
	}

	r.Remove("s1")
	ids = r.FindByMeetingUUID("meeting-X")
	if len(ids) != 1 || ids[0] != "s2" {
		t.Fatalf("expected only s2 to remain active, got %v", ids)
	}
}

func TestRegistry_HistoryRingBounded(t *testing.T) {
	r := New(2)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		s := newTestSession(id, "meeting-Y")
		r.Add(id, "meeting-Y", s)
		r.Remove(id)
	}

	// Only the most recent 2 of 5 archived entries should be queryable.
	if _, ok := r.StreamMetadata("a"); ok {
		t.Fatalf("expected oldest archived entry to have been evicted from the ring")
	}
	if _, ok := r.StreamMetadata("e"); !ok {
		t.Fatalf("expected most recent archived entry to still be queryable")
	}
}
