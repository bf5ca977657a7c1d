package stats

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveNeedsMinimumSamples(t *testing.T) {
	s := NewStore(DefaultConfig())
	for _, v := range []float64{0, 1000, -1000, 1e6} {
		assert.False(t, s.Observe("CNC1", "temp", v).Anomalous)
	}
	assert.Len(t, s.Readings("CNC1", "temp"), 4)
}

func TestWindowEvictsOldest(t *testing.T) {
	s := NewStore(DefaultConfig())
	for i := 1; i <= 11; i++ {
		s.Observe("CNC1", "temp", float64(i))
	}
	assert.Equal(t, []float64{2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, s.Readings("CNC1", "temp"))
}

func TestConstantWindowNeverFlags(t *testing.T) {
	s := NewStore(DefaultConfig())
	for i := 0; i < 25; i++ {
		assert.False(t, s.Observe("CNC1", "vibration", 0.1).Anomalous)
	}
}

func TestOutlierAfterSixSamplesIsNotFlagged(t *testing.T) {
	s := NewStore(DefaultConfig())
	for i := 0; i < 5; i++ {
		s.Observe("CNC1", "temp", 50)
	}
	// window [50 x5, 30]: mean 46.67, stdev 8.165, z = -2.04
	assert.False(t, s.Observe("CNC1", "temp", 30).Anomalous)
}

func TestOutlierInFullWindowIsFlagged(t *testing.T) {
	s := NewStore(DefaultConfig())
	for i := 0; i < 9; i++ {
		require.False(t, s.Observe("CNC1", "temp", 50).Anomalous)
	}
	// window [50 x9, 80]: mean 53, stdev 9.487, z = 2.846
	res := s.Observe("CNC1", "temp", 80)
	assert.True(t, res.Anomalous)
	assert.InDelta(t, 53.0, res.Mean, 1e-9)
	assert.Equal(t, 2.85, res.Z)
}

func TestNegativeSpikeHasNegativeZ(t *testing.T) {
	s := NewStore(DefaultConfig())
	for i := 0; i < 9; i++ {
		s.Observe("CNC1", "power", 300)
	}
	res := s.Observe("CNC1", "power", 100)
	assert.True(t, res.Anomalous)
	assert.Equal(t, -2.85, res.Z)
}

func TestZLimitIsConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ZLimit = 3.0
	s := NewStore(cfg)
	for i := 0; i < 9; i++ {
		s.Observe("CNC1", "temp", 50)
	}
	assert.False(t, s.Observe("CNC1", "temp", 80).Anomalous)
}

func TestKeysAreIndependent(t *testing.T) {
	s := NewStore(DefaultConfig())
	for i := 0; i < 9; i++ {
		s.Observe("CNC1", "temp", 50)
	}
	assert.False(t, s.Observe("CNC2", "temp", 80).Anomalous)
	assert.False(t, s.Observe("CNC1", "vibration", 80).Anomalous)
	assert.Equal(t, 3, s.series())
}

func TestNonFiniteValuesAreIgnored(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Observe("CNC1", "temp", math.NaN())
	s.Observe("CNC1", "temp", math.Inf(1))
	assert.Empty(t, s.Readings("CNC1", "temp"))
}

func TestRecordInspection(t *testing.T) {
	s := NewStore(DefaultConfig())
	var n int
	for _, failed := range []bool{true, false, true, false, true} {
		n = s.RecordInspection("CNC1", failed)
	}
	assert.Equal(t, 3, n)

	s = NewStore(DefaultConfig())
	for _, failed := range []bool{true, true, false, false, false} {
		n = s.RecordInspection("CNC1", failed)
	}
	assert.Equal(t, 2, n)

	// the two leading failures age out after two more passes
	s.RecordInspection("CNC1", false)
	assert.Equal(t, 0, s.RecordInspection("CNC1", false))
}

func TestConcurrentObserveKeepsWindowBounded(t *testing.T) {
	s := NewStore(DefaultConfig())
	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.Observe("CNC1", "temp", float64(g*i%97))
				s.RecordInspection("CNC1", i%2 == 0)
			}
		}(g)
	}
	wg.Wait()
	assert.Len(t, s.Readings("CNC1", "temp"), DefaultWindowSize)
}

func TestWindowStdDev(t *testing.T) {
	w := NewWindow(10)
	assert.Equal(t, 0.0, w.StdDev())
	w.Push(2)
	assert.Equal(t, 0.0, w.StdDev())
	for _, v := range []float64{4, 4, 4, 5, 5, 7, 9} {
		w.Push(v)
	}
	// sample stdev of [2 4 4 4 5 5 7 9]
	assert.InDelta(t, 2.138089935, w.StdDev(), 1e-9)
	assert.InDelta(t, 5.0, w.Mean(), 1e-12)
}
