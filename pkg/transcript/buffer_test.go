package transcript

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSummariser struct {
	mu            sync.Mutex
	calls         []string
	segmentCounts []int
}

func (f *fakeSummariser) Summarize(_ context.Context, meetingID, speakerID, speakerName, recentText string, segmentCount int) (SummaryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recentText)
	f.segmentCounts = append(f.segmentCounts, segmentCount)
	return SummaryResult{Summary: recentText}, nil
}

type fakeChunkWriter struct {
	mu     sync.Mutex
	chunks []struct{ id, text string }
}

func (f *fakeChunkWriter) WriteChunk(_ context.Context, meetingID, chunkID, text string, speakerIDs, speakerNames []string, startTime, endTime int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, struct{ id, text string }{chunkID, text})
	return nil
}

func TestBuffer_SummarizesAfterSpeakerIdle(t *testing.T) {
	summariser := &fakeSummariser{}
	b := New("meeting-A", Config{
		SpeakerIdle:     30 * time.Millisecond,
		SummaryInterval: time.Hour,
		ChunkInterval:   time.Hour,
		Summariser:      summariser,
	})
	defer b.Destroy()

	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "Alice", Text: "hello"})
	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "Alice", Text: "world"})
	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "Alice", Text: "again"})

	deadline := time.After(time.Second)
	for {
		summariser.mu.Lock()
		n := len(summariser.calls)
		summariser.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected a summarization call after speaker idle, got none")
		case <-time.After(5 * time.Millisecond):
		}
	}

	summariser.mu.Lock()
	defer summariser.mu.Unlock()
	if summariser.calls[0] != "hello world again" {
		t.Fatalf("expected recentText %q, got %q", "hello world again", summariser.calls[0])
	}
}

func TestBuffer_SegmentCountIsCumulativeAcrossSummaries(t *testing.T) {
	summariser := &fakeSummariser{}
	b := New("meeting-F", Config{
		SpeakerIdle:     20 * time.Millisecond,
		SummaryInterval: time.Hour,
		ChunkInterval:   time.Hour,
		Summariser:      summariser,
	})
	defer b.Destroy()

	waitForCalls := func(n int) {
		deadline := time.After(time.Second)
		for {
			summariser.mu.Lock()
			got := len(summariser.calls)
			summariser.mu.Unlock()
			if got >= n {
				return
			}
			select {
			case <-deadline:
				t.Fatalf("timed out waiting for %d summarization calls, got %d", n, got)
			case <-time.After(5 * time.Millisecond):
			}
		}
	}

	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "Alice", Text: "first"})
	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "Alice", Text: "batch"})
	waitForCalls(1)

	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "Alice", Text: "second"})
	waitForCalls(2)

	summariser.mu.Lock()
	defer summariser.mu.Unlock()
	if summariser.segmentCounts[0] != 2 {
		t.Fatalf("expected first summary's segmentCount to be 2, got %d", summariser.segmentCounts[0])
	}
	if summariser.segmentCounts[1] != 3 {
		t.Fatalf("expected second summary's segmentCount to be cumulative (3), got %d", summariser.segmentCounts[1])
	}
}

func TestBuffer_FlushesChunkOnDestroy(t *testing.T) {
	writer := &fakeChunkWriter{}
	b := New("meeting-B", Config{
		SpeakerIdle:     time.Hour,
		SummaryInterval: time.Hour,
		ChunkInterval:   time.Hour,
		ChunkWriter:     writer,
	})

	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "U1", Text: "hello"})
	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "U1", Text: "world"})
	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "U1", Text: "again"})
	b.Destroy()

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.chunks) != 1 {
		t.Fatalf("expected exactly one chunk flushed, got %d", len(writer.chunks))
	}
	want := "U1: hello\nU1: world\nU1: again"
	if writer.chunks[0].text != want {
		t.Fatalf("expected chunk text %q, got %q", want, writer.chunks[0].text)
	}
	if writer.chunks[0].id != "meeting-B-chunk-1" {
		t.Fatalf("expected chunk id meeting-B-chunk-1, got %s", writer.chunks[0].id)
	}
}

func TestBuffer_WordThresholdFlushesEarly(t *testing.T) {
	writer := &fakeChunkWriter{}
	b := New("meeting-C", Config{
		SpeakerIdle:     time.Hour,
		SummaryInterval: time.Hour,
		ChunkInterval:   time.Hour,
		ChunkWordLimit:  3,
		ChunkWriter:     writer,
	})
	defer b.Destroy()

	b.Append(Utterance{SpeakerID: "U1", SpeakerName: "U1", Text: "one two three four"})

	deadline := time.After(time.Second)
	for {
		writer.mu.Lock()
		n := len(writer.chunks)
		writer.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected early chunk flush once word threshold crossed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
