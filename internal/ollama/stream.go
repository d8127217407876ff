package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// StreamReader reads an NDJSON response body line by line.
//
// A frame split across network reads is reassembled by the line reader; a
// final line without a trailing newline is still decoded.
type StreamReader struct {
	reader      *bufio.Reader
	logger      *slog.Logger
	accumulator strings.Builder
	fragments   int
	model       string
}

// NewStreamReader creates a stream reader over r.
func NewStreamReader(r io.Reader, logger *slog.Logger) *StreamReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamReader{
		reader: bufio.NewReader(r),
		logger: logger,
	}
}

// Process reads frames until the done frame, EOF, or ctx is cancelled,
// handing every non-empty fragment to fn.
func (s *StreamReader) Process(ctx context.Context, fn TokenFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := s.readChunk()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if chunk == nil {
			continue
		}
		if chunk.Content != "" {
			if err := fn(chunk.Content); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
}

// readChunk returns nil, nil for blank or malformed lines.
func (s *StreamReader) readChunk() (*Chunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if errors.Is(err, io.EOF) && len(strings.TrimSpace(string(line))) == 0 {
		return nil, io.EOF
	}

	line = []byte(strings.TrimSpace(string(line)))
	if len(line) == 0 {
		return nil, nil
	}

	var f frame
	if jerr := json.Unmarshal(line, &f); jerr != nil {
		s.logger.Warn("skipping malformed stream line", "error", jerr, "line", truncate(string(line), 80))
		return nil, nil
	}
	if f.Error != "" {
		return nil, &APIError{Message: f.Error}
	}
	if f.Model != "" {
		s.model = f.Model
	}

	content := f.Response
	if content == "" {
		content = f.Message.Content
	}
	if content != "" {
		s.accumulator.WriteString(content)
		s.fragments++
	}

	return &Chunk{
		Content:    content,
		Done:       f.Done,
		DoneReason: f.DoneReason,
		Model:      s.model,
		EvalCount:  f.EvalCount,
	}, nil
}

// Accumulated returns all content received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// Fragments returns the number of non-empty fragments received.
func (s *StreamReader) Fragments() int {
	return s.fragments
}

// Model returns the model name reported by the stream.
func (s *StreamReader) Model() string {
	return s.model
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
