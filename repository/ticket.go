package repository

import (
	"context"
	"errors"
	"time"

	"cinema_booking/constants"
	"cinema_booking/model"

	"gorm.io/gorm"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create lưu vé cùng danh sách ghế và combo trong một transaction.
func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(ticket).Error
	})
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Preload("Combos").
		Where("id = ?", id).
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Confirm chuyển vé PENDING -> CONFIRMED. Trả về false nếu vé không còn PENDING.
func (r *TicketRepository) Confirm(ctx context.Context, id string, at time.Time) (bool, error) {
	at = at.UTC()
	return r.transition(ctx, id, constants.TicketConfirmed, map[string]any{
		"confirmed_at": &at,
	})
}

// Cancel chuyển vé PENDING -> CANCELLED. Trả về false nếu vé không còn PENDING.
func (r *TicketRepository) Cancel(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	at = at.UTC()
	return r.transition(ctx, id, constants.TicketCancelled, map[string]any{
		"cancelled_at":  &at,
		"cancel_reason": reason,
	})
}

func (r *TicketRepository) transition(ctx context.Context, id, status string, fields map[string]any) (bool, error) {
	fields["status"] = status
	result := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("id = ? AND status = ?", id, constants.TicketPending).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindExpiredPending trả về vé PENDING được tạo trước cutoff.
func (r *TicketRepository) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Ticket, error) {
	var tickets []model.Ticket
	query := r.db.WithContext(ctx).
		Preload("Seats").
		Where("status = ? AND created_at < ?", constants.TicketPending, cutoff.UTC()).
		Order("created_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&tickets).Error
	return tickets, err
}
