package repository

import (
	"context"
	"errors"

	"cinema_booking/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository chỉ đọc dữ liệu danh mục (suất chiếu, ghế, combo, voucher).
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetShowtime(ctx context.Context, id uint) (*model.Showtime, error) {
	var showtime model.Showtime
	err := r.db.WithContext(ctx).First(&showtime, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &showtime, nil
}

// GetSeats trả về các ghế thuộc phòng roomId trong danh sách ids.
// Ghế không thuộc phòng sẽ không có trong kết quả.
func (r *CatalogRepository) GetSeats(ctx context.Context, roomId uint, ids []uint) ([]model.Seat, error) {
	var seats []model.Seat
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND id IN ?", roomId, ids).
		Find(&seats).Error
	return seats, err
}

func (r *CatalogRepository) ListSeatsByRoom(ctx context.Context, roomId uint) ([]model.Seat, error) {
	var seats []model.Seat
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomId).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "row"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "column"}}).
		Find(&seats).Error
	return seats, err
}

func (r *CatalogRepository) GetCombos(ctx context.Context, ids []uint) ([]model.Combo, error) {
	var combos []model.Combo
	if len(ids) == 0 {
		return combos, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&combos).Error
	return combos, err
}

func (r *CatalogRepository) GetVoucher(ctx context.Context, code string) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&voucher).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}
