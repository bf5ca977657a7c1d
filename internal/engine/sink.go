package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"digiforge-analytics/internal/data"
)

// WriterSink writes each classified record as one JSON line.
type WriterSink struct {
	name string
	mu   sync.Mutex
	enc  *json.Encoder
}

func NewWriterSink(name string, w io.Writer) *WriterSink {
	return &WriterSink{name: name, enc: json.NewEncoder(w)}
}

func (s *WriterSink) Name() string { return s.name }

func (s *WriterSink) Emit(_ context.Context, rec *data.ClassifiedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("write classified record: %w", err)
	}
	return nil
}
