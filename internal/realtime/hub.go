// Package realtime fans case change events out to connected reviewers
// so queue views refresh without polling.
package realtime

import (
	"sync"

	"github.com/jeevansetu/telehealth-platform/internal/cases"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

const subscriberBuffer = 16

// Hub broadcasts case change events to subscribers. Publishing never
// blocks; a subscriber that cannot keep up loses events rather than
// stalling the workflow.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan cases.ChangeEvent]struct{}
	logger *logging.Logger
}

// NewHub creates an empty hub. Satisfies cases.Notifier.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		subs:   make(map[chan cases.ChangeEvent]struct{}),
		logger: logger,
	}
}

var _ cases.Notifier = (*Hub)(nil)

// NotifyCaseChanged delivers the event to every subscriber.
func (h *Hub) NotifyCaseChanged(evt cases.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.logger.Warn("dropping case event for slow subscriber", "case_id", evt.CaseID)
		}
	}
}

// Subscribe registers a listener. The returned cancel func must be
// called when the listener goes away.
func (h *Hub) Subscribe() (<-chan cases.ChangeEvent, func()) {
	ch := make(chan cases.ChangeEvent, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
