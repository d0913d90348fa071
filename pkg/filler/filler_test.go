package filler

import (
	"context"
	"testing"
	"time"
)

func collect(t *testing.T, f *Filler, n int, timeout time.Duration) []Frame {
	t.Helper()
	var frames []Frame
	deadline := time.After(timeout)
	for len(frames) < n {
		select {
		case fr, ok := <-f.Output():
			if !ok {
				return frames
			}
			frames = append(frames, fr)
		case <-deadline:
			t.Fatalf("timed out collecting %d frames, got %d", n, len(frames))
		}
	}
	return frames
}

func TestFiller_FirstTickResyncsToFirstPacket(t *testing.T) {
	f := New(Config{FrameDuration: 5 * time.Millisecond, Preroll: []byte("silence")})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	// The first packet sets the running "expected" timestamp to its own
	// value, so no filler frame precedes it regardless of how far into
	// the stream its timestamp falls.
	f.Push(Packet{Timestamp: 2000, Payload: []byte("p1")})

	frames := collect(t, f, 1, time.Second)
	if frames[0].Kind != KindReal || frames[0].Timestamp != 2000 {
		t.Fatalf("expected first emitted frame to be the real packet at 2000, got %+v", frames[0])
	}
}

func TestFiller_EmitsFillerOnGap(t *testing.T) {
	f := New(Config{FrameDuration: 5 * time.Millisecond, Preroll: []byte("silence")})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	f.Push(Packet{Timestamp: 0, Payload: []byte("p0")})

	// No more packets arrive; subsequent ticks should emit filler frames
	// since the arrival buffer is empty.
	frames := collect(t, f, 3, time.Second)
	if frames[0].Kind != KindReal {
		t.Fatalf("expected first frame real, got %v", frames[0].Kind)
	}
	for _, fr := range frames[1:] {
		if fr.Kind != KindFiller {
			t.Fatalf("expected subsequent frames to be filler, got %v", fr.Kind)
		}
	}
}

func TestFiller_SmallBackwardJumpDropped(t *testing.T) {
	f := New(Config{FrameDuration: 10 * time.Millisecond, Preroll: []byte("s")})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	f.Push(Packet{Timestamp: 100, Payload: []byte("p100")})
	collect(t, f, 1, time.Second) // consume the first real frame, expected becomes 110

	// A packet more than 3 but fewer than 10 frame durations behind
	// `expected` (60 against ~110) must be dropped silently, not emitted.
	f.Push(Packet{Timestamp: 60, Payload: []byte("stale")})
	f.Push(Packet{Timestamp: 200, Payload: []byte("p200")})

	frames := collect(t, f, 2, time.Second)
	for _, fr := range frames {
		if string(fr.Payload) == "stale" {
			t.Fatalf("stale packet should have been dropped silently, got it emitted")
		}
	}
}

func TestFiller_LargeBackwardJumpResyncs(t *testing.T) {
	f := New(Config{FrameDuration: 10 * time.Millisecond, Preroll: []byte("s")})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	f.Push(Packet{Timestamp: 1000, Payload: []byte("p1000")})
	collect(t, f, 1, time.Second) // expected becomes 1010

	// diff = 1 - expected (at least 1010, growing with filler ticks) is far
	// below the -10*frameDuration (-100) threshold.
	f.Push(Packet{Timestamp: 1, Payload: []byte("ancient")})

	frames := collect(t, f, 2, time.Second)
	found := false
	for _, fr := range frames {
		if string(fr.Payload) == "ancient" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected large backward jump to re-sync and emit the packet, frames=%+v", frames)
	}
}

func TestFiller_StopDrainsToEndTime(t *testing.T) {
	f := New(Config{FrameDuration: 10 * time.Millisecond, Preroll: []byte("s")})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	f.Push(Packet{Timestamp: 0, Payload: []byte("p0")})
	collect(t, f, 1, time.Second) // expected becomes 10

	f.Stop(50)
	<-done

	var frames []Frame
	for fr := range f.Output() {
		frames = append(frames, fr)
	}
	if len(frames) == 0 {
		t.Fatalf("expected at least one filler frame drained on stop")
	}
	for _, fr := range frames {
		if fr.Kind != KindFiller {
			t.Fatalf("expected only filler frames after stop, got %v", fr.Kind)
		}
	}
}
