package sync

import "sync"

// WebhookHealth tracks a rolling window of webhook processing outcomes.
// The "healthy while fewer than N failures over the last M events"
// heuristic is an operational placeholder, not an SLA; both numbers come
// from config so operators can tune them.
type WebhookHealth struct {
	mu        sync.Mutex
	window    []bool // true = failed
	next      int
	filled    int
	maxFailed int
	failed    int
}

// HealthStatus is the reported webhook backlog health
type HealthStatus struct {
	Healthy   bool `json:"healthy"`
	Processed int  `json:"processed"`
	Failed    int  `json:"failed"`
	Window    int  `json:"window"`
}

// NewWebhookHealth creates a tracker over a window of windowSize events
func NewWebhookHealth(windowSize, maxFailed int) *WebhookHealth {
	if windowSize <= 0 {
		windowSize = 100
	}
	if maxFailed <= 0 {
		maxFailed = 10
	}
	return &WebhookHealth{
		window:    make([]bool, windowSize),
		maxFailed: maxFailed,
	}
}

// Record registers one processed webhook event
func (h *WebhookHealth) Record(failed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.filled == len(h.window) {
		if h.window[h.next] {
			h.failed--
		}
	} else {
		h.filled++
	}

	h.window[h.next] = failed
	if failed {
		h.failed++
	}
	h.next = (h.next + 1) % len(h.window)
}

// Status reports the current rolling-window health
func (h *WebhookHealth) Status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HealthStatus{
		Healthy:   h.failed < h.maxFailed,
		Processed: h.filled,
		Failed:    h.failed,
		Window:    len(h.window),
	}
}
