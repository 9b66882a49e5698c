package model

import "time"

type PaymentRequest struct {
	Amount    int64     `json:"amount"`
	OrderInfo string    `json:"orderInfo"`
	TxnRef    string    `json:"txnRef"`
	IPAddr    string    `json:"ipAddr"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type PaymentLink struct {
	PaymentUrl string    `json:"paymentUrl"`
	TxnRef     string    `json:"txnRef"`
	Amount     int64     `json:"amount"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// CallbackOutcome là kết quả đã kiểm chứng của một callback từ cổng thanh toán.
type CallbackOutcome int

const (
	OutcomeChecksumFailed CallbackOutcome = iota
	OutcomeVerifiedSuccess
	OutcomeVerifiedFailure
)

func (o CallbackOutcome) String() string {
	switch o {
	case OutcomeVerifiedSuccess:
		return "verified-success"
	case OutcomeVerifiedFailure:
		return "verified-failure"
	default:
		return "checksum-failed"
	}
}

// GatewayCallback được dựng một lần tại biên từ query VNPay.
type GatewayCallback struct {
	Outcome       CallbackOutcome
	TxnRef        string
	Amount        int64 // giữ nguyên vnp_Amount (VND * 100)
	ResponseCode  string
	TransactionNo string
	BankCode      string
	PayDate       *time.Time
}

type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// BookingResult trả cho trình duyệt sau khi VNPay redirect về.
type BookingResult struct {
	Status     string `json:"status"` // success, failed, pending, error
	Code       string `json:"code"`
	Message    string `json:"message"`
	TicketId   string `json:"ticketId,omitempty"`
	PublicCode string `json:"publicCode,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	QRCode     string `json:"qrCode,omitempty"`
}
