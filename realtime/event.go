package realtime

import (
	"context"
	"fmt"
	"time"
)

const (
	EventSeatStatusChanged = "seat-status-changed"
	EventSeatsReleased     = "seats-released"
	EventSeatsBooked       = "seats-booked"
	EventPaymentInitiated  = "payment-initiated"
)

const channelPrefix = "showtime:"

// ChannelKey định danh một kênh theo (phòng, suất chiếu).
type ChannelKey struct {
	RoomId     uint
	ShowtimeId uint
}

func (k ChannelKey) Channel() string {
	return fmt.Sprintf("%s%d:%d", channelPrefix, k.RoomId, k.ShowtimeId)
}

func ParseChannel(name string) (ChannelKey, error) {
	var k ChannelKey
	if _, err := fmt.Sscanf(name, channelPrefix+"%d:%d", &k.RoomId, &k.ShowtimeId); err != nil {
		return ChannelKey{}, fmt.Errorf("invalid channel %q: %w", name, err)
	}
	return k, nil
}

type SeatChange struct {
	SeatId uint   `json:"seatId"`
	Status string `json:"status"`
	HeldBy string `json:"heldBy,omitempty"`
}

type Event struct {
	Type       string       `json:"type"`
	RoomId     uint         `json:"roomId"`
	ShowtimeId uint         `json:"showtimeId"`
	Seats      []SeatChange `json:"seats,omitempty"`
	TicketId   string       `json:"ticketId,omitempty"`
	At         time.Time    `json:"at"`
}

func (e Event) Key() ChannelKey {
	return ChannelKey{RoomId: e.RoomId, ShowtimeId: e.ShowtimeId}
}

// Publisher phát sự kiện theo kiểu best-effort: lỗi chỉ được ghi log,
// client luôn có thể tải lại sơ đồ ghế.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}
