package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"digiforge-analytics/internal/data"
)

func alert(i int) *data.Alert {
	return &data.Alert{ID: fmt.Sprintf("a-%d", i), AlertType: "HIGH_TEMP", MachineID: "CNC1"}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewAlertHistory(50)
	for i := 1; i <= 51; i++ {
		h.Add(alert(i))
	}

	all := h.GetAll()
	assert.Len(t, all, 50)
	assert.Equal(t, "a-2", all[0].ID)
	assert.Equal(t, "a-51", all[49].ID)
	for _, a := range all {
		assert.NotEqual(t, "a-1", a.ID)
	}
}

func TestGetRecent(t *testing.T) {
	h := NewAlertHistory(10)
	assert.Empty(t, h.GetRecent(5))
	for i := 1; i <= 4; i++ {
		h.Add(alert(i))
	}

	recent := h.GetRecent(2)
	assert.Equal(t, []string{"a-3", "a-4"}, []string{recent[0].ID, recent[1].ID})
	assert.Len(t, h.GetRecent(100), 4)
	assert.Len(t, h.GetRecent(-1), 4)
}

func TestGetAllReturnsCopy(t *testing.T) {
	h := NewAlertHistory(3)
	h.Add(alert(1))
	all := h.GetAll()
	all[0] = alert(99)
	assert.Equal(t, "a-1", h.GetAll()[0].ID)
}

func TestDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultHistorySize, NewAlertHistory(0).Capacity())
}

func TestConcurrentAdd(t *testing.T) {
	h := NewAlertHistory(50)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h.Add(alert(g*1000 + i))
				_ = h.GetRecent(5)
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 50, h.Len())
}
