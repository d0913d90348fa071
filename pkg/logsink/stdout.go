package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// jsonLine is the on-the-wire shape for one batched Entry, mirroring
// slog's own JSON handler field names so downstream log shippers need
// no translation.
type jsonLine struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// StdoutWriter is the process's default logsink.Writer: it encodes
// each batch as newline-delimited JSON and writes it in a single call,
// so a batch flush costs one syscall regardless of its size.
type StdoutWriter struct {
	out io.Writer
}

// NewStdoutWriter wraps out (typically os.Stdout) as a Writer.
func NewStdoutWriter(out io.Writer) *StdoutWriter {
	return &StdoutWriter{out: out}
}

// WriteBatch implements Writer.
func (w *StdoutWriter) WriteBatch(_ context.Context, entries []Entry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		line := jsonLine{
			Time:    e.Time.Format("2006-01-02T15:04:05.000Z07:00"),
			Level:   e.Level.String(),
			Message: e.Message,
		}
		if len(e.Attrs) > 0 {
			line.Attrs = make(map[string]any, len(e.Attrs))
			for _, a := range e.Attrs {
				line.Attrs[a.Key] = a.Value.Any()
			}
		}
		encoded, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("logsink: failed to marshal entry: %w", err)
		}
		buf.Write(encoded)
		buf.WriteByte('\n')
	}
	_, err := w.out.Write(buf.Bytes())
	return err
}
