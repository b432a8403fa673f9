package inbox

import (
	"context"
	"sync"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
)

const subscriberBuffer = 10

// Hub fans new in-app items out to live stream subscribers of the same user.
// A slow subscriber misses items rather than blocking delivery.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan entity.InboxItem]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan entity.InboxItem]struct{})}
}

// Subscribe registers a stream for userID. The channel is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID string) <-chan entity.InboxItem {
	ch := make(chan entity.InboxItem, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan entity.InboxItem]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	context.AfterFunc(ctx, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs := h.subs[userID]; subs != nil {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subs, userID)
			}
		}
		close(ch)
	})

	return ch
}

// Publish reports how many subscribers received it.
func (h *Hub) Publish(it entity.InboxItem) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for ch := range h.subs[it.UserID] {
		select {
		case ch <- it:
			n++
		default:
		}
	}
	return n
}

// Subscribers returns the number of open streams of userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[userID])
}
