package model

import "time"

type Showtime struct {
	DTO
	PublicCode string    `gorm:"size:16;uniqueIndex" json:"publicCode"`
	StartTime  time.Time `validate:"required" json:"start"`
	EndTime    time.Time `validate:"required" json:"end"`
	MovieId    uint      `json:"movieId"`
	RoomId     uint      `gorm:"index" json:"roomId"`
	Room       Room      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;foreignKey:RoomId" json:"-"`
}

// ShowtimeSeat là trạng thái của một ghế trong một suất chiếu.
// HeldBy/HeldAt chỉ có giá trị khi SELECTING, TicketId chỉ có khi BOOKED.
// Không có bản ghi nghĩa là ghế AVAILABLE.
type ShowtimeSeat struct {
	DTO
	ShowtimeId uint       `gorm:"not null;uniqueIndex:idx_showtime_seat" json:"showtimeId"`
	SeatId     uint       `gorm:"not null;uniqueIndex:idx_showtime_seat" json:"seatId"`
	RoomId     uint       `gorm:"not null;index" json:"roomId"`
	Status     string     `gorm:"size:16;not null;default:AVAILABLE;index" json:"status"`
	HeldBy     string     `gorm:"size:64;not null;default:''" json:"heldBy"`
	HeldAt     *time.Time `gorm:"index" json:"heldAt"`
	TicketId   string     `gorm:"size:36;not null;default:''" json:"ticketId"`
}

// SeatUI là một ghế trên sơ đồ gửi cho client.
type SeatUI struct {
	Id        uint       `json:"id"`
	Label     string     `json:"label"`
	Row       string     `json:"row"`
	Column    int        `json:"column"`
	Category  string     `json:"category"`
	Price     int64      `json:"price"`
	Status    string     `json:"status"`
	HeldBy    string     `json:"heldBy,omitempty"`
	ExpiredAt *time.Time `json:"expiredAt,omitempty"`
}

type SeatMap struct {
	ShowtimeId uint                `json:"showtimeId"`
	RoomId     uint                `json:"roomId"`
	Rows       map[string][]SeatUI `json:"rows"`
}
