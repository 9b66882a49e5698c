package handler

import (
	"context"
	"strconv"
	"time"

	"cinema_booking/constants"
	"cinema_booking/logger"
	"cinema_booking/realtime"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const wsWriteTimeout = 10 * time.Second

type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// UpgradeWebsocket chặn request không phải websocket trước khi nâng cấp kết nối.
func UpgradeWebsocket(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// SeatWebsocket đăng ký kênh phòng/suất chiếu, gửi sơ đồ ghế trước rồi stream sự kiện.
func (h *Handler) SeatWebsocket(c *websocket.Conn) {
	defer c.Close()

	roomId, errRoom := strconv.ParseUint(c.Params("roomId"), 10, 64)
	showtimeId, errShowtime := strconv.ParseUint(c.Params("showtimeId"), 10, 64)
	if errRoom != nil || errShowtime != nil {
		_ = c.WriteJSON(wsMessage{Type: "error", Data: constants.DATA_INPUT_INVALID})
		return
	}
	key := realtime.ChannelKey{RoomId: uint(roomId), ShowtimeId: uint(showtimeId)}

	// đăng ký trước khi chụp sơ đồ để không lỡ sự kiện ở giữa
	sub := h.bus.Subscribe(key)
	defer h.bus.Unsubscribe(sub)

	seatMap, err := h.reservations.Snapshot(context.Background(), key.ShowtimeId)
	if err != nil {
		_ = c.WriteJSON(wsMessage{Type: "error", Data: err.Error()})
		return
	}
	if seatMap.RoomId != key.RoomId {
		_ = c.WriteJSON(wsMessage{Type: "error", Data: constants.SHOWTIME_MISMATCH})
		return
	}
	if err := h.write(c, wsMessage{Type: "snapshot", Data: seatMap}); err != nil {
		return
	}

	// client chỉ nghe; đọc để phát hiện đóng kết nối
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := h.write(c, wsMessage{Type: ev.Type, Data: ev}); err != nil {
				logger.Debug("Websocket write failed", zap.String("channel", key.Channel()), zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) write(c *websocket.Conn, msg wsMessage) error {
	if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.WriteJSON(msg)
}
