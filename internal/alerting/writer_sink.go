package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"digiforge-analytics/internal/data"
)

// WriterSink prints each alert as one JSON line, for consoles and pipes.
type WriterSink struct {
	name string
	mu   sync.Mutex
	enc  *json.Encoder
}

func NewWriterSink(name string, w io.Writer) *WriterSink {
	return &WriterSink{name: name, enc: json.NewEncoder(w)}
}

func (s *WriterSink) Name() string { return s.name }

func (s *WriterSink) Send(_ context.Context, alert *data.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(alert); err != nil {
		return fmt.Errorf("write alert: %w", err)
	}
	return nil
}
