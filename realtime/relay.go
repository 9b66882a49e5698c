package realtime

import (
	"context"
	"encoding/json"

	"cinema_booking/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay đẩy sự kiện qua Redis Pub/Sub để mọi instance cùng nhận,
// mỗi instance chuyển tiếp vào Hub của mình.
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
}

func NewRedisRelay(client *redis.Client, hub *Hub) *RedisRelay {
	return &RedisRelay{client: client, hub: hub}
}

func (r *RedisRelay) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to encode realtime event", zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, event.Key().Channel(), string(payload)).Err(); err != nil {
		// Redis lỗi thì vẫn giao cho client của instance này
		logger.Warn("Redis publish failed, delivering locally", zap.String("channel", event.Key().Channel()), zap.Error(err))
		r.hub.Publish(ctx, event)
	}
}

// Run lắng nghe mọi kênh showtime:* cho tới khi ctx bị huỷ.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	logger.Info("Realtime relay subscribed", zap.String("pattern", channelPrefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(ctx, msg.Channel, msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(ctx context.Context, channel, payload string) {
	key, err := ParseChannel(channel)
	if err != nil {
		logger.Warn("Ignoring message on unknown channel", zap.String("channel", channel))
		return
	}
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Warn("Ignoring malformed realtime event", zap.String("channel", channel), zap.Error(err))
		return
	}
	event.RoomId, event.ShowtimeId = key.RoomId, key.ShowtimeId
	r.hub.Publish(ctx, event)
}
