package model

type Room struct {
	DTO
	Name       string `gorm:"not null" validate:"required" json:"name"`
	RoomNumber uint   `json:"roomNumber" validate:"required,min=1"`
	CinemaId   uint   `json:"cinemaId"`
	Seats      []Seat `gorm:"foreignKey:RoomId" json:"seats"`
}
