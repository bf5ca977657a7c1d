// internal/storage/memory.go
package storage

import (
	"sync"

	"digiforge-analytics/internal/data"
)

const DefaultHistorySize = 50 // Keep the last 50 alerts

// AlertHistory is a bounded in-memory buffer of recent alerts, oldest first.
type AlertHistory struct {
	mu       sync.RWMutex
	buffer   []*data.Alert
	capacity int
}

func NewAlertHistory(capacity int) *AlertHistory {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &AlertHistory{
		buffer:   make([]*data.Alert, 0, capacity),
		capacity: capacity,
	}
}

// Add appends an alert, dropping the oldest one when full. It returns the new length.
func (s *AlertHistory) Add(alert *data.Alert) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buffer) >= s.capacity {
		copy(s.buffer, s.buffer[1:])
		s.buffer = s.buffer[:len(s.buffer)-1]
	}
	s.buffer = append(s.buffer, alert)
	return len(s.buffer)
}

// GetRecent returns up to count of the newest alerts, oldest first.
// A non-positive count returns everything.
func (s *AlertHistory) GetRecent(count int) []*data.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > len(s.buffer) {
		count = len(s.buffer)
	}
	result := make([]*data.Alert, count)
	copy(result, s.buffer[len(s.buffer)-count:])
	return result
}

func (s *AlertHistory) GetAll() []*data.Alert {
	return s.GetRecent(0)
}

func (s *AlertHistory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffer)
}

func (s *AlertHistory) Capacity() int { return s.capacity }
