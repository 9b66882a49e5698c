package realtime

import "context"

// Bus là điểm vào duy nhất cho service và websocket handler.
// Có relay thì phát qua Redis, không thì phát thẳng vào Hub.
type Bus struct {
	hub   *Hub
	relay *RedisRelay
}

func NewBus(hub *Hub, relay *RedisRelay) *Bus {
	return &Bus{hub: hub, relay: relay}
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	if b.relay != nil {
		b.relay.Publish(ctx, event)
		return
	}
	b.hub.Publish(ctx, event)
}

func (b *Bus) Subscribe(key ChannelKey) *Subscription {
	return b.hub.Subscribe(key)
}

func (b *Bus) Unsubscribe(sub *Subscription) {
	b.hub.Unsubscribe(sub)
}
