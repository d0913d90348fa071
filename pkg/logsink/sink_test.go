package logsink

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type recordingWriter struct {
	mu      sync.Mutex
	batches [][]Entry
}

func (w *recordingWriter) WriteBatch(_ context.Context, entries []Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	w.batches = append(w.batches, cp)
	return nil
}

func (w *recordingWriter) totalEntries() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func TestSink_FlushesOnBatchSize(t *testing.T) {
	w := &recordingWriter{}
	sink := New(w, slog.LevelInfo, 3, time.Hour)
	logger := slog.New(sink)

	logger.Info("one")
	logger.Info("two")
	logger.Info("three")

	deadline := time.Now().Add(time.Second)
	for w.totalEntries() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := w.totalEntries(); got != 3 {
		t.Fatalf("expected 3 entries flushed by batch size, got %d", got)
	}
	sink.Drain(context.Background())
}

func TestSink_FlushesOnInterval(t *testing.T) {
	w := &recordingWriter{}
	sink := New(w, slog.LevelInfo, 50, 10*time.Millisecond)
	logger := slog.New(sink)

	logger.Info("solo")

	deadline := time.Now().Add(time.Second)
	for w.totalEntries() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := w.totalEntries(); got != 1 {
		t.Fatalf("expected 1 entry flushed by interval, got %d", got)
	}
	sink.Drain(context.Background())
}

func TestSink_DrainFlushesRemainder(t *testing.T) {
	w := &recordingWriter{}
	sink := New(w, slog.LevelInfo, 50, time.Hour)
	logger := slog.New(sink)

	logger.Info("buffered")
	sink.Drain(context.Background())

	if got := w.totalEntries(); got != 1 {
		t.Fatalf("expected Drain to flush the buffered entry, got %d", got)
	}
}

func TestSink_WithAttrsSharesBuffer(t *testing.T) {
	w := &recordingWriter{}
	sink := New(w, slog.LevelInfo, 50, time.Hour)
	logger := slog.New(sink).With("component", "test")

	logger.Info("hello")
	sink.Drain(context.Background())

	if got := w.totalEntries(); got != 1 {
		t.Fatalf("expected the derived logger's entry to flush through the shared sink, got %d", got)
	}
}

func TestSink_EnabledRespectsMinLevel(t *testing.T) {
	w := &recordingWriter{}
	sink := New(w, slog.LevelWarn, 50, time.Hour)
	logger := slog.New(sink)

	logger.Info("should be dropped")
	sink.Drain(context.Background())

	if got := w.totalEntries(); got != 0 {
		t.Fatalf("expected info-level record below minLevel to be dropped, got %d", got)
	}
}
