package model

import "time"

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Voucher chỉ được đọc để tính giảm giá khi tạo vé.
type Voucher struct {
	DTO
	Code          string    `gorm:"unique;not null" json:"code"`
	DiscountType  string    `gorm:"not null" json:"discountType"` // percentage, fixed
	DiscountValue int64     `gorm:"not null" json:"discountValue"`
	MaxDiscount   int64     `gorm:"default:0" json:"maxDiscount"`
	MinOrder      int64     `gorm:"default:0" json:"minOrder"`
	StartDate     time.Time `gorm:"not null" json:"startDate"`
	EndDate       time.Time `gorm:"not null" json:"endDate"`
	Status        string    `gorm:"default:'active';not null" json:"status"`
}

type Combo struct {
	DTO
	Name     string `gorm:"not null" json:"name"`
	Price    int64  `gorm:"not null" json:"price"`
	IsActive bool   `gorm:"default:true" json:"isActive"`
}

// Discount trả về số tiền được giảm cho một đơn có tổng subtotal tại thời điểm now.
func (v Voucher) Discount(subtotal int64, now time.Time) (int64, bool) {
	if v.Status != "active" || now.Before(v.StartDate) || now.After(v.EndDate) || subtotal < v.MinOrder {
		return 0, false
	}
	var discount int64
	switch v.DiscountType {
	case DiscountPercentage:
		discount = subtotal * v.DiscountValue / 100
	case DiscountFixed:
		discount = v.DiscountValue
	default:
		return 0, false
	}
	if v.MaxDiscount > 0 && discount > v.MaxDiscount {
		discount = v.MaxDiscount
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount, true
}
