package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"cinema_booking/constants"
	"cinema_booking/logger"
	"cinema_booking/model"
	"cinema_booking/realtime"
	"cinema_booking/repository"
	"cinema_booking/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const qrCodeSize = 256

var ackMessages = map[string]string{
	constants.RspConfirmSuccess:   "Confirm Success",
	constants.RspOrderNotFound:    "Order not found",
	constants.RspAlreadyConfirmed: "Order already confirmed",
	constants.RspInvalidAmount:    "Invalid amount",
	constants.RspChecksumFailed:   "Invalid Checksum",
	constants.RspUnknownError:     "Unknown error",
}

type InitiatePaymentRequest struct {
	TicketId string
	Amount   int64
	ClientIP string
}

// PaymentReconciler tạo link thanh toán và đối soát callback từ VNPay (IPN và return URL).
type PaymentReconciler struct {
	booking *BookingCoordinator
	vnpay   *utils.VNPay
}

func NewPaymentReconciler(booking *BookingCoordinator, vnpay *utils.VNPay) *PaymentReconciler {
	return &PaymentReconciler{booking: booking, vnpay: vnpay}
}

func (p *PaymentReconciler) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*model.PaymentLink, error) {
	ticket, err := p.booking.GetTicket(ctx, req.TicketId)
	if err != nil {
		return nil, err
	}
	if ticket.Status != constants.TicketPending {
		return nil, &Error{Kind: KindAlreadyProcessed, Message: "ticket is not awaiting payment"}
	}
	if req.Amount != ticket.TotalAmount {
		return nil, validationError("amount %d does not match ticket total %d", req.Amount, ticket.TotalAmount)
	}

	now := p.booking.reservations.clock.Now().UTC()
	expiresAt := now.Add(p.booking.paymentWindow)
	txnRef := strings.ReplaceAll(uuid.NewString(), "-", "")

	payment, err := p.booking.payments.GetByTicketID(ctx, ticket.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		payment = &model.Payment{
			TicketId:  ticket.ID,
			Amount:    ticket.TotalAmount,
			TxnRef:    txnRef,
			Status:    constants.PaymentPending,
			Method:    constants.PaymentMethodVNPay,
			ExpiresAt: expiresAt,
		}
		if err := p.booking.payments.Create(ctx, payment); err != nil {
			return nil, internalError("failed to create payment", err)
		}
	case err != nil:
		return nil, internalError("failed to load payment", err)
	case payment.Status != constants.PaymentPending:
		return nil, &Error{Kind: KindAlreadyProcessed, Message: "payment already " + strings.ToLower(payment.Status)}
	default:
		// VNPay không nhận lại TxnRef cũ nên mỗi lần thanh toán lại cấp mã mới
		ok, err := p.booking.payments.Renew(ctx, payment.ID, txnRef, expiresAt)
		if err != nil {
			return nil, internalError("failed to renew payment", err)
		}
		if !ok {
			return nil, &Error{Kind: KindAlreadyProcessed, Message: "payment is no longer pending"}
		}
	}

	link := &model.PaymentLink{
		PaymentUrl: p.vnpay.BuildPaymentUrl(model.PaymentRequest{
			Amount:    ticket.TotalAmount,
			OrderInfo: "Thanh toan ve " + ticket.PublicCode,
			TxnRef:    txnRef,
			IPAddr:    req.ClientIP,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}),
		TxnRef:    txnRef,
		Amount:    ticket.TotalAmount,
		ExpiresAt: expiresAt,
	}

	p.booking.reservations.publish(ctx, realtime.EventPaymentInitiated, ticket.RoomId, ticket.ShowtimeId, nil, ticket.ID)
	logger.Info("Payment initiated", zap.String("ticketId", ticket.ID), zap.String("txnRef", txnRef), zap.Int64("amount", ticket.TotalAmount))
	return link, nil
}

type reconcileResult struct {
	code     string
	callback model.GatewayCallback
	payment  *model.Payment
	ticket   *model.Ticket
}

// HandleIPN luôn trả về một mã trong bộ mã phản hồi của VNPay.
func (p *PaymentReconciler) HandleIPN(ctx context.Context, query url.Values) model.IPNResponse {
	res := p.reconcile(ctx, "ipn", query)
	return model.IPNResponse{RspCode: res.code, Message: ackMessages[res.code]}
}

// HandleReturn dùng chung logic đối soát với IPN, trả kết quả cho trình duyệt.
func (p *PaymentReconciler) HandleReturn(ctx context.Context, query url.Values) model.BookingResult {
	res := p.reconcile(ctx, "return", query)
	result := model.BookingResult{Code: res.code, Message: ackMessages[res.code]}
	if res.ticket != nil {
		result.TicketId = res.ticket.ID
		result.PublicCode = res.ticket.PublicCode
		result.Amount = res.ticket.TotalAmount
	}

	switch res.code {
	case constants.RspConfirmSuccess:
		if res.callback.Outcome == model.OutcomeVerifiedSuccess {
			p.markSuccess(&result)
		} else {
			result.Status = "failed"
			result.Message = "Thanh toán không thành công"
		}
	case constants.RspAlreadyConfirmed:
		// IPN có thể đã xử lý trước khi trình duyệt quay về
		switch res.payment.Status {
		case constants.PaymentCompleted:
			p.markSuccess(&result)
		case constants.PaymentFailed:
			result.Status = "failed"
			result.Message = "Thanh toán không thành công"
		default:
			result.Status = "pending"
		}
	default:
		result.Status = "error"
	}
	return result
}

func (p *PaymentReconciler) markSuccess(result *model.BookingResult) {
	result.Status = "success"
	result.Message = "Đặt vé thành công"
	qr, err := utils.GenerateQRCodeDataURI(result.PublicCode, qrCodeSize)
	if err != nil {
		logger.Warn("Generate QR failed", zap.String("ticketId", result.TicketId), zap.Error(err))
		return
	}
	result.QRCode = qr
}

func (p *PaymentReconciler) reconcile(ctx context.Context, path string, query url.Values) reconcileResult {
	res := p.doReconcile(ctx, query)
	p.booking.metrics.ReconcileTotal.WithLabelValues(path, res.code).Inc()
	logger.Info("VNPay callback reconciled",
		zap.String("path", path), zap.String("txnRef", res.callback.TxnRef),
		zap.Stringer("outcome", res.callback.Outcome), zap.String("rspCode", res.code))
	return res
}

func (p *PaymentReconciler) doReconcile(ctx context.Context, query url.Values) reconcileResult {
	cb := p.vnpay.ParseCallback(query)
	res := reconcileResult{callback: cb}

	if cb.Outcome == model.OutcomeChecksumFailed {
		res.code = constants.RspChecksumFailed
		return res
	}

	payment, err := p.booking.payments.GetByTxnRef(ctx, cb.TxnRef)
	if errors.Is(err, repository.ErrNotFound) {
		res.code = constants.RspOrderNotFound
		return res
	}
	if err != nil {
		logger.Error("Load payment failed", zap.String("txnRef", cb.TxnRef), zap.Error(err))
		res.code = constants.RspUnknownError
		return res
	}
	res.payment = payment

	ticket, err := p.booking.tickets.GetByID(ctx, payment.TicketId)
	if errors.Is(err, repository.ErrNotFound) {
		res.code = constants.RspOrderNotFound
		return res
	}
	if err != nil {
		logger.Error("Load ticket failed", zap.String("ticketId", payment.TicketId), zap.Error(err))
		res.code = constants.RspUnknownError
		return res
	}
	res.ticket = ticket

	// so sánh theo đơn vị của VNPay để lệch lẻ dưới 100 không bị làm tròn mất
	if cb.Amount != ticket.TotalAmount*100 {
		logger.Warn("VNPay amount mismatch",
			zap.String("txnRef", cb.TxnRef), zap.Int64("gateway", cb.Amount), zap.Int64("ticket", ticket.TotalAmount*100))
		res.code = constants.RspInvalidAmount
		return res
	}

	if payment.Status != constants.PaymentPending {
		res.code = constants.RspAlreadyConfirmed
		return res
	}

	audit := repository.PaymentAudit{
		TransactionNo: cb.TransactionNo,
		BankCode:      cb.BankCode,
		ResponseCode:  cb.ResponseCode,
		PaidAt:        cb.PayDate,
	}

	var code string
	if cb.Outcome == model.OutcomeVerifiedSuccess {
		code, err = p.settleSuccess(ctx, payment, ticket, audit)
	} else {
		code, err = p.settleFailure(ctx, payment, ticket, audit)
	}
	if err != nil {
		logger.Error("Settle payment failed", zap.String("txnRef", cb.TxnRef), zap.Error(err))
		res.code = constants.RspUnknownError
		return res
	}
	res.code = code
	return p.refresh(ctx, res)
}

func (p *PaymentReconciler) settleSuccess(ctx context.Context, payment *model.Payment, ticket *model.Ticket, audit repository.PaymentAudit) (string, error) {
	ok, err := p.booking.payments.Complete(ctx, payment.ID, audit)
	if err != nil {
		return "", err
	}
	if !ok {
		return constants.RspAlreadyConfirmed, nil
	}

	now := p.booking.reservations.clock.Now()
	confirmed, err := p.booking.tickets.Confirm(ctx, ticket.ID, now)
	if err != nil {
		return "", err
	}
	if !confirmed {
		// tiền đã nhận nhưng vé không còn PENDING, cần xử lý hoàn tiền thủ công
		logger.Error("Payment completed for ticket that is no longer pending",
			zap.String("ticketId", ticket.ID), zap.String("txnRef", payment.TxnRef))
		return constants.RspConfirmSuccess, nil
	}

	seats, conflicts, err := p.booking.reservations.Confirm(ctx, ConfirmRequest{
		ShowtimeId: ticket.ShowtimeId,
		RoomId:     ticket.RoomId,
		SeatIds:    ticket.SeatIds(),
		HolderId:   ticket.BuyerId,
		TicketId:   ticket.ID,
	})
	if err != nil {
		return "", err
	}
	if len(conflicts) > 0 {
		logger.Error("Confirmed ticket has seats not booked by it",
			zap.String("ticketId", ticket.ID), zap.Uints("seatIds", conflicts))
	}

	p.booking.reservations.publish(ctx, realtime.EventSeatsBooked, ticket.RoomId, ticket.ShowtimeId,
		seatChanges(seats, constants.SeatBooked), ticket.ID)
	return constants.RspConfirmSuccess, nil
}

func (p *PaymentReconciler) settleFailure(ctx context.Context, payment *model.Payment, ticket *model.Ticket, audit repository.PaymentAudit) (string, error) {
	ok, err := p.booking.payments.Fail(ctx, payment.ID, audit)
	if err != nil {
		return "", err
	}
	if !ok {
		return constants.RspAlreadyConfirmed, nil
	}

	err = p.booking.CancelTicket(ctx, ticket.ID, "payment failed: "+audit.ResponseCode)
	if err != nil && KindOf(err) != KindAlreadyProcessed {
		return "", err
	}
	return constants.RspConfirmSuccess, nil
}

// refresh nạp lại payment/ticket sau khi đổi trạng thái để trả về dữ liệu mới nhất.
func (p *PaymentReconciler) refresh(ctx context.Context, res reconcileResult) reconcileResult {
	if payment, err := p.booking.payments.GetByTxnRef(ctx, res.payment.TxnRef); err == nil {
		res.payment = payment
	}
	if ticket, err := p.booking.tickets.GetByID(ctx, res.ticket.ID); err == nil {
		res.ticket = ticket
	}
	return res
}
