// Package stream feeds telemetry from continuous sources into the engine.
// Records without a machine id get the configured default machine.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/engine"
)

// Processor runs one raw telemetry record.
type Processor interface {
	ProcessRecord(ctx context.Context, raw []byte, opts ...engine.ProcessOption) (*engine.Result, error)
}

// Stats counts what a listener has seen. Safe for concurrent reads.
type Stats struct {
	Records   atomic.Int64
	Malformed atomic.Int64
	Oversized atomic.Int64
	Alerts    atomic.Int64
}

func (s *Stats) observe(res *engine.Result, err error) {
	s.Records.Inc()
	switch {
	case errors.Is(err, data.ErrMalformedRecord):
		s.Malformed.Inc()
	case err == nil && res.Alert != nil:
		s.Alerts.Inc()
	}
}

// LineListener reads one JSON record per line.
type LineListener struct {
	processor      Processor
	defaultMachine string
	maxLineBytes   int
	logger         *zap.Logger
	stats          Stats
}

func NewLineListener(processor Processor, defaultMachine string, maxLineBytes int, logger *zap.Logger) *LineListener {
	return &LineListener{
		processor:      processor,
		defaultMachine: defaultMachine,
		maxLineBytes:   maxLineBytes,
		logger:         logger,
	}
}

func (l *LineListener) Stats() *Stats { return &l.stats }

// Run processes lines from r until EOF or ctx is done. Blank lines are skipped;
// lines longer than the limit are discarded with a warning.
func (l *LineListener) Run(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReaderSize(r, l.maxLineBytes)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, oversized, err := readLine(reader)
		if len(line) > 0 || oversized {
			l.handle(ctx, line, oversized)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read telemetry stream: %w", err)
		}
	}
}

func (l *LineListener) handle(ctx context.Context, line []byte, oversized bool) {
	if oversized {
		l.stats.Oversized.Inc()
		l.logger.Warn("discarding oversized line", zap.Int("limit_bytes", l.maxLineBytes))
		return
	}
	res, err := l.processor.ProcessRecord(ctx, bytes.Clone(line),
		engine.WithSource("stdin"),
		engine.WithDefaultMachine(l.defaultMachine))
	l.stats.observe(res, err)
}

// readLine returns the next trimmed line. A line that does not fit the reader's
// buffer is consumed and reported as oversized.
func readLine(reader *bufio.Reader) ([]byte, bool, error) {
	line, err := reader.ReadSlice('\n')
	if !errors.Is(err, bufio.ErrBufferFull) {
		return bytes.TrimSpace(line), false, err
	}
	for errors.Is(err, bufio.ErrBufferFull) {
		_, err = reader.ReadSlice('\n')
	}
	return nil, true, err
}
