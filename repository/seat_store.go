package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinema_booking/constants"
	"cinema_booking/model"
)

var ErrNotFound = errors.New("record not found")

// SeatKey xác định một bản ghi trạng thái (ghế, suất chiếu). RoomId chỉ dùng khi
// cần tạo bản ghi AVAILABLE lần đầu.
type SeatKey struct {
	ShowtimeId uint
	SeatId     uint
	RoomId     uint
}

func (k SeatKey) String() string {
	return fmt.Sprintf("showtime=%d seat=%d", k.ShowtimeId, k.SeatId)
}

// SeatExpectation là trạng thái trước đó mà một CAS yêu cầu.
type SeatExpectation struct {
	Status   string
	HeldBy   string
	TicketId string
	// HeldBefore: chỉ khớp khi thời điểm giữ ghế cũ hơn mốc này
	HeldBefore *time.Time
}

type SeatState struct {
	Status   string
	HeldBy   string
	HeldAt   *time.Time
	TicketId string
}

func ExpectAvailable() SeatExpectation {
	return SeatExpectation{Status: constants.SeatAvailable}
}

func ExpectSelecting(holder string) SeatExpectation {
	return SeatExpectation{Status: constants.SeatSelecting, HeldBy: holder}
}

func ExpectStaleSelecting(holder string, cutoff time.Time) SeatExpectation {
	return SeatExpectation{Status: constants.SeatSelecting, HeldBy: holder, HeldBefore: &cutoff}
}

func ExpectBooked(ticketId string) SeatExpectation {
	return SeatExpectation{Status: constants.SeatBooked, TicketId: ticketId}
}

func AvailableState() SeatState {
	return SeatState{Status: constants.SeatAvailable}
}

func SelectingState(holder string, at time.Time) SeatState {
	at = at.UTC()
	return SeatState{Status: constants.SeatSelecting, HeldBy: holder, HeldAt: &at}
}

func BookedState(ticketId string) SeatState {
	return SeatState{Status: constants.SeatBooked, TicketId: ticketId}
}

// Validate kiểm tra bất biến: HeldBy/HeldAt có giá trị khi và chỉ khi SELECTING,
// TicketId có giá trị khi và chỉ khi BOOKED.
func (s SeatState) Validate() error {
	switch s.Status {
	case constants.SeatAvailable:
		if s.HeldBy != "" || s.HeldAt != nil || s.TicketId != "" {
			return fmt.Errorf("available state must not carry holder or ticket")
		}
	case constants.SeatSelecting:
		if s.HeldBy == "" || s.HeldAt == nil || s.TicketId != "" {
			return fmt.Errorf("selecting state requires holder and hold time only")
		}
	case constants.SeatBooked:
		if s.TicketId == "" || s.HeldBy != "" || s.HeldAt != nil {
			return fmt.Errorf("booked state requires ticket only")
		}
	default:
		return fmt.Errorf("unknown seat status %q", s.Status)
	}
	return nil
}

// SeatStore lưu trạng thái ghế theo suất chiếu. Mọi thay đổi đi qua
// CompareAndSwap, nguyên tử trên đúng một ghế.
type SeatStore interface {
	// GetStatus trả về nil khi chưa có bản ghi (coi như AVAILABLE).
	GetStatus(ctx context.Context, key SeatKey) (*model.ShowtimeSeat, error)
	// CompareAndSwap trả về false khi trạng thái hiện tại không khớp expect.
	CompareAndSwap(ctx context.Context, key SeatKey, expect SeatExpectation, next SeatState) (bool, error)
	ListByShowtime(ctx context.Context, showtimeId uint) ([]model.ShowtimeSeat, error)
	FindStaleHolds(ctx context.Context, cutoff time.Time, limit int) ([]model.ShowtimeSeat, error)
}
