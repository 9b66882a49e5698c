package model

import "time"

type Payment struct {
	DTO
	TicketId      string     `gorm:"size:36;not null;uniqueIndex" json:"ticketId"`
	Amount        int64      `gorm:"not null" json:"amount"`
	TxnRef        string     `gorm:"size:32;uniqueIndex" json:"txnRef"`
	Status        string     `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	Method        string     `gorm:"size:16" json:"method"`
	TransactionNo string     `gorm:"size:32" json:"transactionNo,omitempty"`
	BankCode      string     `gorm:"size:32" json:"bankCode,omitempty"`
	ResponseCode  string     `gorm:"size:8" json:"responseCode,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	ExpiresAt     time.Time  `json:"expiresAt"`

	Ticket Ticket `gorm:"foreignKey:TicketId" json:"-"`
}

type CreatePaymentInput struct {
	TicketId string `json:"ticketId" validate:"required,uuid"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
}
