package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"cinema_booking/constants"
	"cinema_booking/logger"
	"cinema_booking/metrics"
	"cinema_booking/model"
	"cinema_booking/realtime"
	"cinema_booking/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPaymentWindow = 15 * time.Minute
	expireBatchSize      = 100
)

type TicketStore interface {
	Create(ctx context.Context, ticket *model.Ticket) error
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	Confirm(ctx context.Context, id string, at time.Time) (bool, error)
	Cancel(ctx context.Context, id, reason string, at time.Time) (bool, error)
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Ticket, error)
}

type PaymentStore interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByTxnRef(ctx context.Context, txnRef string) (*model.Payment, error)
	GetByTicketID(ctx context.Context, ticketId string) (*model.Payment, error)
	Renew(ctx context.Context, id uint, txnRef string, expiresAt time.Time) (bool, error)
	Complete(ctx context.Context, id uint, audit repository.PaymentAudit) (bool, error)
	Fail(ctx context.Context, id uint, audit repository.PaymentAudit) (bool, error)
}

type CreateTicketRequest struct {
	BuyerId     string
	ShowtimeId  uint
	SeatIds     []uint
	Combos      []model.ComboInput
	VoucherCode string
	TotalAmount int64
}

// BookingCoordinator tạo vé: giữ chỗ mọi ghế bằng CAS trước, chỉ lưu vé khi tất cả thành công.
type BookingCoordinator struct {
	reservations  *ReservationManager
	seats         repository.SeatStore
	catalog       Catalog
	tickets       TicketStore
	payments      PaymentStore
	metrics       *metrics.Metrics
	paymentWindow time.Duration
}

func NewBookingCoordinator(reservations *ReservationManager, tickets TicketStore, payments PaymentStore, paymentWindow time.Duration) *BookingCoordinator {
	if paymentWindow <= 0 {
		paymentWindow = defaultPaymentWindow
	}
	return &BookingCoordinator{
		reservations:  reservations,
		seats:         reservations.seats,
		catalog:       reservations.catalog,
		tickets:       tickets,
		payments:      payments,
		metrics:       reservations.metrics,
		paymentWindow: paymentWindow,
	}
}

// bookedSeat ghi nhận ghế đã chuyển sang BOOKED trong lần gọi này.
type bookedSeat struct {
	seat       model.Seat
	preHeld    bool
	prevHeldAt time.Time
}

func (b *BookingCoordinator) CreateTicket(ctx context.Context, req CreateTicketRequest) (*model.Ticket, error) {
	ticket, seats, err := b.prepareTicket(ctx, req)
	if err != nil {
		b.metrics.TicketsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	now := b.reservations.clock.Now().UTC()
	var booked []bookedSeat
	var unavailable []uint
	for _, seat := range seats {
		key := repository.SeatKey{ShowtimeId: ticket.ShowtimeId, SeatId: seat.ID, RoomId: ticket.RoomId}
		claim, ok, err := b.claimForBooking(ctx, key, req.BuyerId, ticket.ID, now)
		if err != nil {
			b.rollbackBooking(ctx, ticket, booked)
			b.metrics.TicketsTotal.WithLabelValues("error").Inc()
			return nil, internalError("failed to claim seat", err)
		}
		if !ok {
			unavailable = append(unavailable, seat.ID)
			continue
		}
		claim.seat = seat
		booked = append(booked, claim)
	}
	if len(unavailable) > 0 {
		b.rollbackBooking(ctx, ticket, booked)
		b.metrics.TicketsTotal.WithLabelValues("conflict").Inc()
		return nil, conflictError("seats are not available", unavailable)
	}

	for _, c := range booked {
		ticket.Seats = append(ticket.Seats, model.TicketSeat{
			SeatId:   c.seat.ID,
			Label:    c.seat.Label(),
			Category: c.seat.Category,
			Price:    c.seat.Price,
			PreHeld:  c.preHeld,
		})
	}

	// Ghế đã BOOKED trước khi vé tồn tại; lưu vé lỗi thì trả lại ghế
	if err := b.tickets.Create(ctx, ticket); err != nil {
		b.rollbackBooking(ctx, ticket, booked)
		b.metrics.TicketsTotal.WithLabelValues("error").Inc()
		return nil, internalError("failed to save ticket", err)
	}

	b.reservations.publish(ctx, realtime.EventSeatsBooked, ticket.RoomId, ticket.ShowtimeId,
		seatChanges(ticket.SeatIds(), constants.SeatBooked), ticket.ID)
	b.metrics.TicketsTotal.WithLabelValues("success").Inc()
	logger.Info("Ticket created",
		zap.String("ticketId", ticket.ID), zap.String("buyer", ticket.BuyerId),
		zap.Uint("showtimeId", ticket.ShowtimeId), zap.Int64("total", ticket.TotalAmount))
	return ticket, nil
}

// prepareTicket kiểm tra đầu vào và tính tiền phía server. Chưa đụng tới trạng thái ghế.
func (b *BookingCoordinator) prepareTicket(ctx context.Context, req CreateTicketRequest) (*model.Ticket, []model.Seat, error) {
	if req.BuyerId == "" {
		return nil, nil, validationError("buyer is required")
	}
	if err := b.reservations.checkSeatIds(req.SeatIds); err != nil {
		return nil, nil, err
	}
	showtime, err := b.reservations.loadShowtime(ctx, req.ShowtimeId, 0)
	if err != nil {
		return nil, nil, err
	}
	now := b.reservations.clock.Now().UTC()
	if !now.Before(showtime.StartTime) {
		return nil, nil, validationError("showtime %d has already started", showtime.ID)
	}
	if err := b.reservations.checkSeatsInRoom(ctx, showtime.RoomId, req.SeatIds); err != nil {
		return nil, nil, err
	}
	seats, err := b.catalog.GetSeats(ctx, showtime.RoomId, req.SeatIds)
	if err != nil {
		return nil, nil, internalError("failed to load seats", err)
	}
	seats = orderSeats(seats, req.SeatIds)

	var subtotal int64
	for _, s := range seats {
		subtotal += s.Price
	}

	combos, err := b.comboLines(ctx, req.Combos)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range combos {
		subtotal += c.UnitPrice * int64(c.Quantity)
	}

	var discount int64
	if req.VoucherCode != "" {
		voucher, err := b.catalog.GetVoucher(ctx, req.VoucherCode)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, validationError("voucher %s does not exist", req.VoucherCode)
		}
		if err != nil {
			return nil, nil, internalError("failed to load voucher", err)
		}
		d, ok := voucher.Discount(subtotal, now)
		if !ok {
			return nil, nil, validationError("voucher %s cannot be applied", req.VoucherCode)
		}
		discount = d
	}

	total := subtotal - discount
	if req.TotalAmount != total {
		return nil, nil, validationError("total amount %d does not match computed total %d", req.TotalAmount, total)
	}

	id := uuid.New()
	ticket := &model.Ticket{
		ID:             id.String(),
		PublicCode:     publicCode(id),
		BuyerId:        req.BuyerId,
		ShowtimeId:     showtime.ID,
		RoomId:         showtime.RoomId,
		VoucherCode:    req.VoucherCode,
		DiscountAmount: discount,
		TotalAmount:    total,
		Status:         constants.TicketPending,
		CreatedAt:      now,
		Combos:         combos,
	}
	// voucher phủ hết tiền thì không cần qua VNPay
	if total == 0 {
		ticket.Status = constants.TicketConfirmed
		ticket.ConfirmedAt = &now
	}
	return ticket, seats, nil
}

func (b *BookingCoordinator) comboLines(ctx context.Context, inputs []model.ComboInput) ([]model.TicketCombo, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(inputs))
	seen := make(map[uint]struct{}, len(inputs))
	for _, in := range inputs {
		if in.Quantity <= 0 {
			return nil, validationError("combo %d quantity must be positive", in.ComboId)
		}
		if _, dup := seen[in.ComboId]; dup {
			return nil, validationError("duplicate combo %d", in.ComboId)
		}
		seen[in.ComboId] = struct{}{}
		ids = append(ids, in.ComboId)
	}

	combos, err := b.catalog.GetCombos(ctx, ids)
	if err != nil {
		return nil, internalError("failed to load combos", err)
	}
	byId := make(map[uint]model.Combo, len(combos))
	for _, c := range combos {
		byId[c.ID] = c
	}

	lines := make([]model.TicketCombo, 0, len(inputs))
	for _, in := range inputs {
		combo, ok := byId[in.ComboId]
		if !ok {
			return nil, validationError("combo %d is not available", in.ComboId)
		}
		lines = append(lines, model.TicketCombo{
			ComboId:   combo.ID,
			Name:      combo.Name,
			Quantity:  in.Quantity,
			UnitPrice: combo.Price,
		})
	}
	return lines, nil
}

// claimForBooking: ghế buyer đang giữ thì SELECTING -> BOOKED, còn lại AVAILABLE -> BOOKED.
func (b *BookingCoordinator) claimForBooking(ctx context.Context, key repository.SeatKey, buyer, ticketId string, now time.Time) (bookedSeat, bool, error) {
	next := repository.BookedState(ticketId)

	current, err := b.seats.GetStatus(ctx, key)
	if err != nil {
		return bookedSeat{}, false, err
	}
	if current != nil && current.Status == constants.SeatSelecting && current.HeldBy == buyer && current.HeldAt != nil {
		heldAt := *current.HeldAt
		ok, err := b.seats.CompareAndSwap(ctx, key, repository.ExpectSelecting(buyer), next)
		if err != nil || ok {
			return bookedSeat{preHeld: true, prevHeldAt: heldAt}, ok, err
		}
		// hold vừa mất (hết hạn/nhả), thử như ghế trống
	} else if current != nil && b.reservations.isStale(current, now) {
		if _, err := b.reservations.expireStale(ctx, key, current, now); err != nil {
			return bookedSeat{}, false, err
		}
	}

	ok, err := b.seats.CompareAndSwap(ctx, key, repository.ExpectAvailable(), next)
	return bookedSeat{}, ok, err
}

func (b *BookingCoordinator) rollbackBooking(ctx context.Context, ticket *model.Ticket, booked []bookedSeat) {
	for _, c := range booked {
		key := repository.SeatKey{ShowtimeId: ticket.ShowtimeId, SeatId: c.seat.ID, RoomId: ticket.RoomId}
		prev := repository.AvailableState()
		if c.preHeld {
			prev = repository.SelectingState(ticket.BuyerId, c.prevHeldAt)
		}
		ok, err := b.seats.CompareAndSwap(ctx, key, repository.ExpectBooked(ticket.ID), prev)
		if err != nil || !ok {
			logger.Error("Rollback booking failed",
				zap.String("ticketId", ticket.ID), zap.Uint("seatId", c.seat.ID),
				zap.Bool("matched", ok), zap.Error(err))
		}
	}
}

func (b *BookingCoordinator) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	ticket, err := b.tickets.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("ticket", err)
	}
	if err != nil {
		return nil, internalError("failed to load ticket", err)
	}
	return ticket, nil
}

// CancelTicket huỷ vé PENDING và trả toàn bộ ghế của vé về AVAILABLE.
// Gọi lại trên vé đã huỷ không có tác dụng.
func (b *BookingCoordinator) CancelTicket(ctx context.Context, id, reason string) error {
	ticket, err := b.GetTicket(ctx, id)
	if err != nil {
		return err
	}

	ok, err := b.tickets.Cancel(ctx, ticket.ID, reason, b.reservations.clock.Now())
	if err != nil {
		return internalError("failed to cancel ticket", err)
	}
	if !ok {
		if ticket.Status == constants.TicketCancelled {
			return nil
		}
		current, err := b.tickets.GetByID(ctx, id)
		if err == nil && current.Status == constants.TicketCancelled {
			return nil
		}
		return &Error{Kind: KindAlreadyProcessed, Message: "ticket is no longer pending"}
	}

	b.releaseTicketSeats(ctx, ticket)
	logger.Info("Ticket cancelled", zap.String("ticketId", ticket.ID), zap.String("reason", reason))
	return nil
}

// releaseTicketSeats trả các ghế BOOKED của vé về AVAILABLE.
// Chỉ thu hồi ghế còn gắn ticket id này nên hold mới của người mua không bị động tới.
func (b *BookingCoordinator) releaseTicketSeats(ctx context.Context, ticket *model.Ticket) {
	revoked, err := b.reservations.Revoke(ctx, RevokeRequest{
		ShowtimeId: ticket.ShowtimeId,
		RoomId:     ticket.RoomId,
		SeatIds:    ticket.SeatIds(),
		TicketId:   ticket.ID,
	})
	if err != nil {
		logger.Error("Revoke ticket seats failed", zap.String("ticketId", ticket.ID), zap.Error(err))
	}
	b.reservations.publishReleased(ctx, ticket.RoomId, ticket.ShowtimeId, revoked)
}

// ExpirePendingTickets huỷ các vé PENDING quá PAYMENT_WINDOW mà chưa thanh toán xong.
func (b *BookingCoordinator) ExpirePendingTickets(ctx context.Context) (int, error) {
	now := b.reservations.clock.Now().UTC()
	tickets, err := b.tickets.FindExpiredPending(ctx, now.Add(-b.paymentWindow), expireBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range tickets {
		ticket := &tickets[i]
		payment, err := b.payments.GetByTicketID(ctx, ticket.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			logger.Error("Load payment failed", zap.String("ticketId", ticket.ID), zap.Error(err))
			continue
		case payment.Status == constants.PaymentCompleted:
			logger.Warn("Pending ticket has completed payment", zap.String("ticketId", ticket.ID), zap.String("txnRef", payment.TxnRef))
			continue
		case payment.Status == constants.PaymentPending:
			if payment.ExpiresAt.After(now) {
				// cổng thanh toán vẫn có thể gọi về
				continue
			}
			ok, err := b.payments.Fail(ctx, payment.ID, repository.PaymentAudit{ResponseCode: "EXPIRED"})
			if err != nil {
				logger.Error("Fail expired payment failed", zap.String("ticketId", ticket.ID), zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
		}

		if err := b.CancelTicket(ctx, ticket.ID, "payment window expired"); err != nil {
			if KindOf(err) != KindAlreadyProcessed {
				logger.Error("Cancel expired ticket failed", zap.String("ticketId", ticket.ID), zap.Error(err))
			}
			continue
		}
		expired++
	}
	return expired, nil
}

// orderSeats sắp lại ghế theo thứ tự client gửi.
func orderSeats(seats []model.Seat, ids []uint) []model.Seat {
	byId := make(map[uint]model.Seat, len(seats))
	for _, s := range seats {
		byId[s.ID] = s
	}
	ordered := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		if s, ok := byId[id]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

func publicCode(id uuid.UUID) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

func resultLabel(err error) string {
	switch KindOf(err) {
	case KindValidation, KindNotFound:
		return "invalid"
	case KindConflict:
		return "conflict"
	default:
		return "error"
	}
}
