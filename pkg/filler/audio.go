package filler

import (
	"log/slog"
	"time"
)

// DefaultAudioSendRateMS is the default audio pacing interval: 20ms
// per frame unless negotiated otherwise at first handshake.
const DefaultAudioSendRateMS = 20

// NewAudio creates a Filler paced at sendRateMS milliseconds per frame,
// emitting preroll (pre-rolled silence) for synthesized gaps.
func NewAudio(sendRateMS int, preroll []byte, logger *slog.Logger) *Filler {
	if sendRateMS <= 0 {
		sendRateMS = DefaultAudioSendRateMS
	}
	return New(Config{
		Kind:          "audio",
		FrameDuration: time.Duration(sendRateMS) * time.Millisecond,
		Preroll:       preroll,
		Logger:        logger,
	})
}
