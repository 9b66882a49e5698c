package constants

// Trạng thái ghế theo suất chiếu
const (
	SeatAvailable = "AVAILABLE"
	SeatSelecting = "SELECTING"
	SeatBooked    = "BOOKED"
)

const (
	TicketPending   = "PENDING"
	TicketConfirmed = "CONFIRMED"
	TicketCancelled = "CANCELLED"
)

const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

const PaymentMethodVNPay = "VNPAY"

const (
	SeatStandard = "STANDARD"
	SeatVIP      = "VIP"
	SeatCouple   = "COUPLE"
)

// Mã phản hồi IPN theo tài liệu VNPay. Cổng thanh toán đọc nguyên văn.
const (
	RspConfirmSuccess   = "00"
	RspOrderNotFound    = "01"
	RspAlreadyConfirmed = "02"
	RspInvalidAmount    = "04"
	RspChecksumFailed   = "97"
	RspUnknownError     = "99"
)

const VNPayResponseSuccess = "00"

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMongo    = "mongo"
)

const (
	DATA_INPUT_INVALID = "DATA_INPUT_INVALID"
	SEAT_UNAVAILABLE   = "SEAT_UNAVAILABLE"
	NOT_FOUND          = "NOT_FOUND"
	INTERNAL_ERROR     = "INTERNAL_ERROR"
	ALREADY_PROCESSED  = "ALREADY_PROCESSED"
	SHOWTIME_MISMATCH  = "SHOWTIME_MISMATCH"
)
