package realtime

import (
	"context"
	"sync"

	"cinema_booking/logger"
	"cinema_booking/metrics"

	"go.uber.org/zap"
)

const defaultBuffer = 32

type Subscription struct {
	key    ChannelKey
	events chan Event
	once   sync.Once
}

func (s *Subscription) Key() ChannelKey {
	return s.key
}

// Events đóng khi subscription bị huỷ.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Hub phân phối sự kiện tới các client trong cùng tiến trình.
type Hub struct {
	mu      sync.RWMutex
	subs    map[ChannelKey]map[*Subscription]struct{}
	buffer  int
	metrics *metrics.Metrics
}

func NewHub(buffer int, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:    make(map[ChannelKey]map[*Subscription]struct{}),
		buffer:  buffer,
		metrics: m,
	}
}

func (h *Hub) Subscribe(key ChannelKey) *Subscription {
	sub := &Subscription{key: key, events: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*Subscription]struct{})
	}
	h.subs[key][sub] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RealtimeSubscribers.Inc()
	}
	return sub
}

// Unsubscribe có thể gọi nhiều lần.
func (h *Hub) Unsubscribe(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		if set := h.subs[sub.key]; set != nil {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, sub.key)
			}
		}
		close(sub.events)
		h.mu.Unlock()

		if h.metrics != nil {
			h.metrics.RealtimeSubscribers.Dec()
		}
	})
}

// Publish không bao giờ chặn: client đọc chậm sẽ bị bỏ qua sự kiện.
func (h *Hub) Publish(_ context.Context, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for sub := range h.subs[event.Key()] {
		select {
		case sub.events <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		logger.Debug("Dropped realtime event for slow subscribers",
			zap.String("channel", event.Key().Channel()),
			zap.String("type", event.Type),
			zap.Int("dropped", dropped))
	}
}

func (h *Hub) SubscriberCount(key ChannelKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}
