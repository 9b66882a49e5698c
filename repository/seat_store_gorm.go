package repository

import (
	"context"
	"errors"
	"time"

	"cinema_booking/constants"
	"cinema_booking/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormSeatStore struct {
	db *gorm.DB
}

func NewGormSeatStore(db *gorm.DB) *GormSeatStore {
	return &GormSeatStore{db: db}
}

func (s *GormSeatStore) GetStatus(ctx context.Context, key SeatKey) (*model.ShowtimeSeat, error) {
	var row model.ShowtimeSeat
	err := s.db.WithContext(ctx).
		Where("showtime_id = ? AND seat_id = ?", key.ShowtimeId, key.SeatId).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *GormSeatStore) CompareAndSwap(ctx context.Context, key SeatKey, expect SeatExpectation, next SeatState) (bool, error) {
	if err := next.Validate(); err != nil {
		return false, err
	}
	db := s.db.WithContext(ctx)

	// Chưa có bản ghi nghĩa là AVAILABLE: tạo bản ghi trước, trùng thì bỏ qua
	if expect.Status == constants.SeatAvailable {
		row := model.ShowtimeSeat{
			ShowtimeId: key.ShowtimeId,
			SeatId:     key.SeatId,
			RoomId:     key.RoomId,
			Status:     constants.SeatAvailable,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "showtime_id"}, {Name: "seat_id"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return false, err
		}
	}

	query := db.Model(&model.ShowtimeSeat{}).
		Where("showtime_id = ? AND seat_id = ?", key.ShowtimeId, key.SeatId).
		Where("status = ? AND held_by = ? AND ticket_id = ?", expect.Status, expect.HeldBy, expect.TicketId)
	if expect.HeldBefore != nil {
		query = query.Where("held_at < ?", expect.HeldBefore.UTC())
	}

	result := query.Updates(map[string]any{
		"status":    next.Status,
		"held_by":   next.HeldBy,
		"held_at":   next.HeldAt,
		"ticket_id": next.TicketId,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormSeatStore) ListByShowtime(ctx context.Context, showtimeId uint) ([]model.ShowtimeSeat, error) {
	var rows []model.ShowtimeSeat
	err := s.db.WithContext(ctx).
		Where("showtime_id = ?", showtimeId).
		Order("seat_id").
		Find(&rows).Error
	return rows, err
}

func (s *GormSeatStore) FindStaleHolds(ctx context.Context, cutoff time.Time, limit int) ([]model.ShowtimeSeat, error) {
	var rows []model.ShowtimeSeat
	query := s.db.WithContext(ctx).
		Where("status = ? AND held_at < ?", constants.SeatSelecting, cutoff.UTC()).
		Order("held_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}
