package database

import (
	"time"

	"cinema_booking/constants"
	"cinema_booking/logger"
	"cinema_booking/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedData tạo một phòng mẫu, suất chiếu, combo và voucher khi database còn trống.
// Chỉ gọi ở môi trường development.
func SeedData(db *gorm.DB, now time.Time) error {
	var count int64
	if err := db.Model(&model.Room{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		room := model.Room{Name: "Phòng 1", RoomNumber: 1, CinemaId: 1}
		if err := tx.Create(&room).Error; err != nil {
			return err
		}

		var seats []model.Seat
		for _, row := range []string{"A", "B", "C", "D", "E"} {
			for col := 1; col <= 10; col++ {
				seats = append(seats, seedSeat(room.ID, row, col))
			}
		}
		if err := tx.Create(&seats).Error; err != nil {
			return err
		}

		start := now.UTC().Truncate(time.Hour).Add(3 * time.Hour)
		showtimes := []model.Showtime{
			{PublicCode: "ST-DEMO-1", StartTime: start, EndTime: start.Add(2 * time.Hour), MovieId: 1, RoomId: room.ID},
			{PublicCode: "ST-DEMO-2", StartTime: start.Add(3 * time.Hour), EndTime: start.Add(5 * time.Hour), MovieId: 1, RoomId: room.ID},
		}
		if err := tx.Create(&showtimes).Error; err != nil {
			return err
		}

		combos := []model.Combo{
			{Name: "Bắp + Nước", Price: 65000, IsActive: true},
			{Name: "Combo đôi", Price: 119000, IsActive: true},
		}
		if err := tx.Create(&combos).Error; err != nil {
			return err
		}

		voucher := model.Voucher{
			Code:          "WELCOME10",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: 10,
			MaxDiscount:   50000,
			StartDate:     now.UTC().AddDate(0, 0, -1),
			EndDate:       now.UTC().AddDate(0, 3, 0),
			Status:        "active",
		}
		if err := tx.Create(&voucher).Error; err != nil {
			return err
		}

		logger.Info("Seeded demo data", zap.Uint("roomId", room.ID), zap.Int("seats", len(seats)))
		return nil
	})
}

func seedSeat(roomId uint, row string, col int) model.Seat {
	seat := model.Seat{RoomId: roomId, Row: row, Column: col, Category: constants.SeatStandard, Price: 75000}
	switch row {
	case "D":
		seat.Category = constants.SeatVIP
		seat.Price = 90000
	case "E":
		seat.Category = constants.SeatCouple
		seat.Price = 150000
	}
	return seat
}
