package service

import (
	"sync"

	"ballotguard/internal/reconcile/models"
)

const defaultHistory = 50

// history is a bounded ring of past reports; the oldest is overwritten
// once capacity is reached.
type history struct {
	mu       sync.Mutex
	reports  []models.Report
	head     int
	count    int
	capacity int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = defaultHistory
	}
	return &history{reports: make([]models.Report, capacity), capacity: capacity}
}

func (h *history) add(r models.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports[h.head] = r
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// list returns the reports newest first.
func (h *history) list() []models.Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Report, 0, h.count)
	for i := 1; i <= h.count; i++ {
		out = append(out, h.reports[(h.head-i+h.capacity)%h.capacity])
	}
	return out
}
