package transcript

import "sync"

// Manager owns one Buffer per active meeting, created lazily on first
// Append and torn down explicitly when the meeting ends.
type Manager struct {
	mu      sync.Mutex
	buffers map[string]*Buffer
	newCfg  func() Config
}

// NewManager constructs a Manager. cfgFactory is called once per
// meeting to parameterize that meeting's Buffer (so a fresh Summariser
// client/logger binding can be produced per buffer if desired).
func NewManager(cfgFactory func() Config) *Manager {
	return &Manager{
		buffers: make(map[string]*Buffer),
		newCfg:  cfgFactory,
	}
}

// Append routes an utterance to its meeting's buffer, creating one if
// this is the meeting's first utterance.
func (m *Manager) Append(meetingID string, u Utterance) {
	m.mu.Lock()
	buf, ok := m.buffers[meetingID]
	if !ok {
		buf = New(meetingID, m.newCfg())
		m.buffers[meetingID] = buf
	}
	m.mu.Unlock()
	buf.Append(u)
}

// EndMeeting flushes and destroys the meeting's buffer, if any.
func (m *Manager) EndMeeting(meetingID string) {
	m.mu.Lock()
	buf, ok := m.buffers[meetingID]
	delete(m.buffers, meetingID)
	m.mu.Unlock()
	if ok {
		buf.Destroy()
	}
}

// Shutdown destroys every active buffer. Used on process shutdown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	buffers := m.buffers
	m.buffers = make(map[string]*Buffer)
	m.mu.Unlock()
	for _, buf := range buffers {
		buf.Destroy()
	}
}
