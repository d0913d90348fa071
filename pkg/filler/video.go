package filler

import (
	"log/slog"
	"time"
)

// DefaultVideoFPS is the default video frame rate: 25 fps unless
// negotiated otherwise at first handshake.
const DefaultVideoFPS = 25

// NewVideo creates a Filler paced at 1000/fps milliseconds per frame,
// emitting preroll (a pre-loaded I-frame / black frame) for
// synthesized gaps.
func NewVideo(fps int, preroll []byte, logger *slog.Logger) *Filler {
	if fps <= 0 {
		fps = DefaultVideoFPS
	}
	return New(Config{
		Kind:          "video",
		FrameDuration: time.Duration(1000/fps) * time.Millisecond,
		Preroll:       preroll,
		Logger:        logger,
	})
}
