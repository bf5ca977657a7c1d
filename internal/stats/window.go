package stats

import "math"

// Window is a fixed-capacity FIFO of the most recent readings for one key.
type Window struct {
	values   []float64
	capacity int
}

// NewWindow returns an empty window holding at most capacity readings.
func NewWindow(capacity int) *Window {
	return &Window{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends v, evicting the oldest reading when the window is full.
func (w *Window) Push(v float64) {
	if len(w.values) >= w.capacity {
		copy(w.values, w.values[1:])
		w.values = w.values[:len(w.values)-1]
	}
	w.values = append(w.values, v)
}

// Len returns the number of readings held.
func (w *Window) Len() int { return len(w.values) }

// Values returns a copy of the readings, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty window.
func (w *Window) Mean() float64 {
	if len(w.values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values))
}

// StdDev returns the sample standard deviation (n-1 denominator).
// A window of identical readings reports exactly 0 regardless of float rounding
// in the mean, and fewer than two readings report 0.
func (w *Window) StdDev() float64 {
	n := len(w.values)
	if n < 2 || w.constant() {
		return 0
	}
	mean := w.Mean()
	var ss float64
	for _, v := range w.values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

func (w *Window) constant() bool {
	for _, v := range w.values[1:] {
		if v != w.values[0] {
			return false
		}
	}
	return true
}

// FailWindow is a fixed-capacity FIFO of inspection outcomes (true = FAIL).
type FailWindow struct {
	results  []bool
	capacity int
}

// NewFailWindow returns an empty outcome window holding at most capacity results.
func NewFailWindow(capacity int) *FailWindow {
	return &FailWindow{
		results:  make([]bool, 0, capacity),
		capacity: capacity,
	}
}

// Push appends an outcome, evicting the oldest when full.
func (f *FailWindow) Push(failed bool) {
	if len(f.results) >= f.capacity {
		copy(f.results, f.results[1:])
		f.results = f.results[:len(f.results)-1]
	}
	f.results = append(f.results, failed)
}

// Failures counts FAIL outcomes in the window.
func (f *FailWindow) Failures() int {
	n := 0
	for _, failed := range f.results {
		if failed {
			n++
		}
	}
	return n
}

// Len returns the number of outcomes held.
func (f *FailWindow) Len() int { return len(f.results) }
