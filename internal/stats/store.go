// Package stats keeps per-machine rolling windows used by the statistical detectors.
package stats

import (
	"math"
	"sync"
)

const (
	DefaultWindowSize       = 10
	DefaultMinSamples       = 5
	DefaultZLimit           = 2.5
	DefaultInspectionWindow = 5
)

// Config sizes the windows and sets the z-score limit.
type Config struct {
	WindowSize       int
	MinSamples       int
	ZLimit           float64
	InspectionWindow int
}

// DefaultConfig returns the stock window sizes.
func DefaultConfig() Config {
	return Config{
		WindowSize:       DefaultWindowSize,
		MinSamples:       DefaultMinSamples,
		ZLimit:           DefaultZLimit,
		InspectionWindow: DefaultInspectionWindow,
	}
}

// Result is the outcome of one Observe call. Mean and Z are set only when Anomalous.
type Result struct {
	Anomalous bool
	Mean      float64
	Z         float64
}

type seriesKey struct {
	machineID string
	metric    string
}

// Store owns every (machine, metric) window and every machine's inspection window.
// Windows are created on first observation and never removed.
type Store struct {
	cfg Config

	mu      sync.Mutex
	windows map[seriesKey]*Window
	fails   map[string]*FailWindow
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	return &Store{
		cfg:     cfg,
		windows: make(map[seriesKey]*Window),
		fails:   make(map[string]*FailWindow),
	}
}

// Observe appends value to the (machineID, metric) window and reports whether
// it deviates from the window by more than the configured z limit.
// Non-finite values are ignored.
func (s *Store) Observe(machineID, metric string, value float64) Result {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey{machineID: machineID, metric: metric}
	w, ok := s.windows[key]
	if !ok {
		w = NewWindow(s.cfg.WindowSize)
		s.windows[key] = w
	}
	w.Push(value)

	if w.Len() < s.cfg.MinSamples {
		return Result{}
	}
	stdev := w.StdDev()
	if stdev == 0 {
		return Result{}
	}
	mean := w.Mean()
	z := (value - mean) / stdev
	if math.Abs(z) <= s.cfg.ZLimit {
		return Result{}
	}
	return Result{
		Anomalous: true,
		Mean:      mean,
		Z:         math.Round(z*100) / 100,
	}
}

// RecordInspection appends one inspection outcome for machineID and returns the
// number of failures now in its window.
func (s *Store) RecordInspection(machineID string, failed bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fails[machineID]
	if !ok {
		f = NewFailWindow(s.cfg.InspectionWindow)
		s.fails[machineID] = f
	}
	f.Push(failed)
	return f.Failures()
}

// Readings returns a copy of the (machineID, metric) window, oldest first.
func (s *Store) Readings(machineID, metric string) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[seriesKey{machineID: machineID, metric: metric}]
	if !ok {
		return nil
	}
	return w.Values()
}

// series returns the number of (machine, metric) windows held.
func (s *Store) series() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
