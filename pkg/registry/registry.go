// Package registry implements the Connection Registry: the in-memory
// map of active Stream Sessions plus a bounded history ring so
// post-mortem queries (stream metadata, timestamps) keep working for a
// while after a session has closed.
package registry

import (
	"sync"

	"github.com/zoom-oss/rtms-ingestion/pkg/stream"
)

// DefaultHistorySize is the number of archived Stats entries retained
// per the documented default.
const DefaultHistorySize = 100

// Registry tracks every active Stream Session, keyed by stream ID, and
// archives a bounded number of terminal snapshots once a session
// closes. Mirrors the map+RWMutex shape of the session manager this
// package is adapted from, generalized with a second, size-bounded
// store for history.
type Registry struct {
	mu       sync.RWMutex
	active   map[string]*stream.Session
	byUUID   map[string][]string // meeting uuid -> stream ids, for findByMeetingUUID
	history  []stream.Stats      // ring buffer; once full, oldest entry at histNext
	histCap  int
	histNext int // insertion index once the ring has wrapped
}

// New constructs a Registry. historySize <= 0 uses DefaultHistorySize.
func New(historySize int) *Registry {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Registry{
		active:  make(map[string]*stream.Session),
		byUUID:  make(map[string][]string),
		histCap: historySize,
	}
}

// Add registers a newly connecting session under its stream ID.
func (r *Registry) Add(streamID, meetingUUID string, s *stream.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[streamID] = s
	r.byUUID[meetingUUID] = append(r.byUUID[meetingUUID], streamID)
}

// Get returns the active session for streamID, if any.
func (r *Registry) Get(streamID string) (*stream.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.active[streamID]
	return s, ok
}

// Has reports whether streamID currently has an active session. Used
// by the Event Router to enforce at-most-one-active-session-per-stream.
func (r *Registry) Has(streamID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[streamID]
	return ok
}

// FindByMeetingUUID returns every currently active stream ID for a
// meeting (a meeting can have more than one concurrent stream, e.g.
// separate audio and video streams negotiated independently).
func (r *Registry) FindByMeetingUUID(meetingUUID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids, ok := r.byUUID[meetingUUID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, active := r.active[id]; active {
			out = append(out, id)
		}
	}
	return out
}

// Remove closes and removes streamID from the active set, archiving
// its terminal Stats into the bounded history ring. Safe to call more
// than once; later calls are no-ops.
func (r *Registry) Remove(streamID string) {
	r.mu.Lock()
	s, ok := r.active[streamID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.active, streamID)
	r.mu.Unlock()

	stats := s.Stats()
	_ = s.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.archive(stats)
	ids := r.byUUID[stats.MeetingUUID]
	for i, id := range ids {
		if id == streamID {
			r.byUUID[stats.MeetingUUID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.byUUID[stats.MeetingUUID]) == 0 {
		delete(r.byUUID, stats.MeetingUUID)
	}
}

// archive inserts stats into the ring, overwriting the oldest entry
// once the ring is at capacity. Caller must hold mu.
func (r *Registry) archive(stats stream.Stats) {
	if len(r.history) < r.histCap {
		r.history = append(r.history, stats)
		return
	}
	r.history[r.histNext] = stats
	r.histNext = (r.histNext + 1) % r.histCap
}

// StreamMetadata returns the negotiated media params and effective
// mask for streamID, consulting the active set first and falling back
// to history so the query stays valid after the stream ends.
func (r *Registry) StreamMetadata(streamID string) (stream.Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.active[streamID]; ok {
		return s.Stats(), true
	}
	for _, st := range r.history {
		if st.StreamID == streamID {
			return st, true
		}
	}
	return stream.Stats{}, false
}

// StreamTimestamps returns the first/last packet timestamps for
// streamID, active or historical.
func (r *Registry) StreamTimestamps(streamID string) (first, last int64, ok bool) {
	st, found := r.StreamMetadata(streamID)
	if !found {
		return 0, 0, false
	}
	return st.FirstPacketTS, st.LastPacketTS, true
}

// Size returns the number of currently active sessions.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// Clear closes every active session and empties the history ring.
// Used on shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	active := r.active
	r.active = make(map[string]*stream.Session)
	r.byUUID = make(map[string][]string)
	r.history = nil
	r.histNext = 0
	r.mu.Unlock()

	for _, s := range active {
		_ = s.Close()
	}
}
