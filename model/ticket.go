package model

import "time"

// Ticket là một đơn đặt vé gồm nhiều ghế và combo của cùng một suất chiếu.
type Ticket struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	PublicCode     string        `gorm:"size:20;uniqueIndex" json:"publicCode"`
	BuyerId        string        `gorm:"size:64;not null;index" json:"buyerId"`
	ShowtimeId     uint          `gorm:"not null;index" json:"showtimeId"`
	RoomId         uint          `gorm:"not null" json:"roomId"`
	VoucherCode    string        `gorm:"size:32" json:"voucherCode,omitempty"`
	DiscountAmount int64         `json:"discountAmount"`
	TotalAmount    int64         `gorm:"not null" json:"totalAmount"`
	Status         string        `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	CreatedAt      time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	ConfirmedAt    *time.Time    `json:"confirmedAt,omitempty"`
	CancelledAt    *time.Time    `json:"cancelledAt,omitempty"`
	CancelReason   string        `json:"cancelReason,omitempty"`
	Seats          []TicketSeat  `gorm:"foreignKey:TicketId;constraint:OnDelete:CASCADE" json:"seats"`
	Combos         []TicketCombo `gorm:"foreignKey:TicketId;constraint:OnDelete:CASCADE" json:"combos"`
}

// TicketSeat chụp lại thông tin ghế tại thời điểm đặt.
type TicketSeat struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	TicketId string `gorm:"size:36;not null;index" json:"-"`
	SeatId   uint   `gorm:"not null" json:"seatId"`
	Label    string `gorm:"size:8" json:"label"`
	Category string `gorm:"size:16" json:"category"`
	Price    int64  `json:"price"`
	// PreHeld: ghế đã được người mua giữ trước khi tạo vé
	PreHeld bool `json:"preHeld"`
}

type TicketCombo struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	TicketId  string `gorm:"size:36;not null;index" json:"-"`
	ComboId   uint   `json:"comboId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

func (t Ticket) SeatIds() []uint {
	ids := make([]uint, 0, len(t.Seats))
	for _, s := range t.Seats {
		ids = append(ids, s.SeatId)
	}
	return ids
}

type ComboInput struct {
	ComboId  uint `json:"comboId" validate:"required,gt=0"`
	Quantity int  `json:"quantity" validate:"required,min=1,max=20"`
}

type CreateTicketInput struct {
	ShowtimeID  uint         `json:"showtimeId" validate:"required,gt=0"`
	SeatIds     []uint       `json:"seatIds" validate:"required,min=1,dive,gt=0"`
	Combos      []ComboInput `json:"combos" validate:"omitempty,dive"`
	VoucherCode string       `json:"voucherCode" validate:"omitempty,max=32"`
	TotalAmount int64        `json:"totalAmount" validate:"min=0"`
	HeldBy      string       `json:"heldBy" validate:"omitempty,max=64"`
}

type HoldSeatInput struct {
	RoomId         uint   `json:"roomId" validate:"required,gt=0"`
	SeatIds        []uint `json:"seatIds" validate:"required,min=1,dive,gt=0"`
	GuestSessionId string `json:"guestSessionId" validate:"omitempty,max=64"`
}

type ReleaseSeatInput struct {
	RoomId  uint   `json:"roomId" validate:"required,gt=0"`
	SeatIds []uint `json:"seatIds" validate:"required,min=1,dive,gt=0"`
	HeldBy  string `json:"heldBy" validate:"omitempty,max=64"`
}
