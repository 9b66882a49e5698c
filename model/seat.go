package model

import "fmt"

type Seat struct {
	DTO
	RoomId   uint   `gorm:"not null;index" json:"roomId"`
	Row      string `gorm:"not null;size:4" validate:"required" json:"row"`       // vd: "A", "B"
	Column   int    `gorm:"not null" validate:"required,min=1" json:"column"`     // vd: 1, 2
	Category string `gorm:"not null;size:16;default:STANDARD" json:"category"`    // STANDARD VIP COUPLE
	Price    int64  `gorm:"not null" validate:"required,gt=0" json:"price"`       // VND
	Room     Room   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (s Seat) Label() string {
	return fmt.Sprintf("%s%d", s.Row, s.Column)
}
