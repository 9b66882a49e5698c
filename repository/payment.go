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

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// PaymentAudit là các trường do cổng thanh toán trả về.
type PaymentAudit struct {
	TransactionNo string
	BankCode      string
	ResponseCode  string
	PaidAt        *time.Time
}

func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(payment).Error
}

func (r *PaymentRepository) GetByTxnRef(ctx context.Context, txnRef string) (*model.Payment, error) {
	return r.first(ctx, "txn_ref = ?", txnRef)
}

func (r *PaymentRepository) GetByTicketID(ctx context.Context, ticketId string) (*model.Payment, error) {
	return r.first(ctx, "ticket_id = ?", ticketId)
}

func (r *PaymentRepository) first(ctx context.Context, query string, args ...any) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where(query, args...).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Renew cấp TxnRef và hạn mới cho payment còn PENDING (người dùng bấm thanh toán lại).
func (r *PaymentRepository) Renew(ctx context.Context, id uint, txnRef string, expiresAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, constants.PaymentPending).
		Updates(map[string]any{"txn_ref": txnRef, "expires_at": expiresAt.UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Complete chuyển PENDING -> COMPLETED. false nghĩa là đã có luồng khác xử lý trước.
func (r *PaymentRepository) Complete(ctx context.Context, id uint, audit PaymentAudit) (bool, error) {
	return r.finish(ctx, id, constants.PaymentCompleted, audit)
}

// Fail chuyển PENDING -> FAILED.
func (r *PaymentRepository) Fail(ctx context.Context, id uint, audit PaymentAudit) (bool, error) {
	return r.finish(ctx, id, constants.PaymentFailed, audit)
}

func (r *PaymentRepository) finish(ctx context.Context, id uint, status string, audit PaymentAudit) (bool, error) {
	fields := map[string]any{
		"status":         status,
		"transaction_no": audit.TransactionNo,
		"bank_code":      audit.BankCode,
		"response_code":  audit.ResponseCode,
	}
	if audit.PaidAt != nil {
		at := audit.PaidAt.UTC()
		fields["paid_at"] = &at
	}
	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, constants.PaymentPending).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
