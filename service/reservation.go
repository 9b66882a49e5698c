package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cinema_booking/constants"
	"cinema_booking/logger"
	"cinema_booking/metrics"
	"cinema_booking/model"
	"cinema_booking/realtime"
	"cinema_booking/repository"

	"github.com/jinzhu/copier"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	defaultHoldTTL         = 5 * time.Minute
	defaultMaxSeatsPerHold = 8
)

// Catalog là phần dữ liệu danh mục mà engine cần đọc.
type Catalog interface {
	GetShowtime(ctx context.Context, id uint) (*model.Showtime, error)
	GetSeats(ctx context.Context, roomId uint, ids []uint) ([]model.Seat, error)
	ListSeatsByRoom(ctx context.Context, roomId uint) ([]model.Seat, error)
	GetCombos(ctx context.Context, ids []uint) ([]model.Combo, error)
	GetVoucher(ctx context.Context, code string) (*model.Voucher, error)
}

type HoldRequest struct {
	ShowtimeId uint
	RoomId     uint
	SeatIds    []uint
	HolderId   string
}

type HoldResult struct {
	HeldSeatIds []uint    `json:"heldSeatIds"`
	HeldBy      string    `json:"heldBy"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type ReleaseRequest struct {
	ShowtimeId uint
	RoomId     uint
	SeatIds    []uint
	HolderId   string
}

type ConfirmRequest struct {
	ShowtimeId uint
	RoomId     uint
	SeatIds    []uint
	HolderId   string
	TicketId   string
}

type RevokeRequest struct {
	ShowtimeId uint
	RoomId     uint
	SeatIds    []uint
	TicketId   string
}

type ReservationManager struct {
	seats    repository.SeatStore
	catalog  Catalog
	bus      realtime.Publisher
	clock    clockwork.Clock
	metrics  *metrics.Metrics
	holdTTL  time.Duration
	maxSeats int
}

type ReservationOption func(*ReservationManager)

func WithClock(clock clockwork.Clock) ReservationOption {
	return func(m *ReservationManager) { m.clock = clock }
}

func WithHoldTTL(ttl time.Duration) ReservationOption {
	return func(m *ReservationManager) {
		if ttl > 0 {
			m.holdTTL = ttl
		}
	}
}

func WithMaxSeatsPerHold(n int) ReservationOption {
	return func(m *ReservationManager) {
		if n > 0 {
			m.maxSeats = n
		}
	}
}

func WithMetrics(mt *metrics.Metrics) ReservationOption {
	return func(m *ReservationManager) { m.metrics = mt }
}

func NewReservationManager(seats repository.SeatStore, catalog Catalog, bus realtime.Publisher, opts ...ReservationOption) *ReservationManager {
	m := &ReservationManager{
		seats:    seats,
		catalog:  catalog,
		bus:      bus,
		clock:    clockwork.NewRealClock(),
		metrics:  metrics.NewNoop(),
		holdTTL:  defaultHoldTTL,
		maxSeats: defaultMaxSeatsPerHold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ReservationManager) HoldTTL() time.Duration {
	return m.holdTTL
}

func (m *ReservationManager) Clock() clockwork.Clock {
	return m.clock
}

// heldSeat ghi lại trạng thái trước khi giữ để hoàn tác đúng.
type heldSeat struct {
	seatId     uint
	prevHeldAt *time.Time
}

// Hold giữ toàn bộ ghế cho holder hoặc không giữ ghế nào.
// Ghế holder đang giữ sẵn được gia hạn.
func (m *ReservationManager) Hold(ctx context.Context, req HoldRequest) (*HoldResult, error) {
	showtime, err := m.validateHold(ctx, &req)
	if err != nil {
		m.metrics.HoldsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	now := m.clock.Now().UTC()
	var claimed []heldSeat
	var unavailable []uint

	for _, seatId := range req.SeatIds {
		key := repository.SeatKey{ShowtimeId: showtime.ID, SeatId: seatId, RoomId: showtime.RoomId}
		held, ok, err := m.claimForHold(ctx, key, req.HolderId, now)
		if err != nil {
			m.rollbackHold(ctx, showtime, req.HolderId, claimed)
			m.metrics.HoldsTotal.WithLabelValues("error").Inc()
			return nil, internalError("failed to hold seat", err)
		}
		if !ok {
			unavailable = append(unavailable, seatId)
			continue
		}
		claimed = append(claimed, held)
	}

	if len(unavailable) > 0 {
		m.rollbackHold(ctx, showtime, req.HolderId, claimed)
		m.metrics.HoldsTotal.WithLabelValues("conflict").Inc()
		return nil, conflictError("seats are not available", unavailable)
	}

	for _, h := range claimed {
		m.publish(ctx, realtime.EventSeatStatusChanged, showtime.RoomId, showtime.ID, []realtime.SeatChange{
			{SeatId: h.seatId, Status: constants.SeatSelecting, HeldBy: req.HolderId},
		}, "")
	}
	m.metrics.HoldsTotal.WithLabelValues("success").Inc()

	return &HoldResult{
		HeldSeatIds: req.SeatIds,
		HeldBy:      req.HolderId,
		ExpiresAt:   now.Add(m.holdTTL),
	}, nil
}

func (m *ReservationManager) validateHold(ctx context.Context, req *HoldRequest) (*model.Showtime, error) {
	if req.HolderId == "" {
		return nil, validationError("holder is required")
	}
	if err := m.checkSeatIds(req.SeatIds); err != nil {
		return nil, err
	}
	showtime, err := m.loadShowtime(ctx, req.ShowtimeId, req.RoomId)
	if err != nil {
		return nil, err
	}
	if !m.clock.Now().Before(showtime.StartTime) {
		return nil, validationError("showtime %d has already started", showtime.ID)
	}
	if err := m.checkSeatsInRoom(ctx, showtime.RoomId, req.SeatIds); err != nil {
		return nil, err
	}
	return showtime, nil
}

func (m *ReservationManager) checkSeatIds(ids []uint) error {
	if len(ids) == 0 {
		return validationError("seatIds must not be empty")
	}
	if len(ids) > m.maxSeats {
		return validationError("at most %d seats per request", m.maxSeats)
	}
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return validationError("duplicate seat %d", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// loadShowtime trả về lỗi nếu roomId (khác 0) không khớp phòng của suất chiếu.
func (m *ReservationManager) loadShowtime(ctx context.Context, showtimeId, roomId uint) (*model.Showtime, error) {
	showtime, err := m.catalog.GetShowtime(ctx, showtimeId)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("showtime", err)
	}
	if err != nil {
		return nil, internalError("failed to load showtime", err)
	}
	if roomId != 0 && roomId != showtime.RoomId {
		return nil, validationError("room %d does not match showtime %d", roomId, showtimeId)
	}
	return showtime, nil
}

func (m *ReservationManager) checkSeatsInRoom(ctx context.Context, roomId uint, ids []uint) error {
	seats, err := m.catalog.GetSeats(ctx, roomId, ids)
	if err != nil {
		return internalError("failed to load seats", err)
	}
	if len(seats) == len(ids) {
		return nil
	}
	found := make(map[uint]struct{}, len(seats))
	for _, s := range seats {
		found[s.ID] = struct{}{}
	}
	var missing []uint
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return &Error{Kind: KindValidation, Message: fmt.Sprintf("seats %v do not belong to room %d", missing, roomId), SeatIds: missing}
}

func (m *ReservationManager) claimForHold(ctx context.Context, key repository.SeatKey, holder string, now time.Time) (heldSeat, bool, error) {
	next := repository.SelectingState(holder, now)

	ok, err := m.seats.CompareAndSwap(ctx, key, repository.ExpectAvailable(), next)
	if err != nil || ok {
		return heldSeat{seatId: key.SeatId}, ok, err
	}

	current, err := m.seats.GetStatus(ctx, key)
	if err != nil || current == nil {
		return heldSeat{}, false, err
	}

	switch {
	case current.Status == constants.SeatSelecting && current.HeldBy == holder:
		prev := current.HeldAt
		ok, err = m.seats.CompareAndSwap(ctx, key, repository.ExpectSelecting(holder), next)
		return heldSeat{seatId: key.SeatId, prevHeldAt: prev}, ok, err
	case m.isStale(current, now):
		released, err := m.expireStale(ctx, key, current, now)
		if err != nil || !released {
			return heldSeat{}, false, err
		}
		ok, err = m.seats.CompareAndSwap(ctx, key, repository.ExpectAvailable(), next)
		return heldSeat{seatId: key.SeatId}, ok, err
	}
	return heldSeat{}, false, nil
}

func (m *ReservationManager) isStale(row *model.ShowtimeSeat, now time.Time) bool {
	return row.Status == constants.SeatSelecting && row.HeldAt != nil && row.HeldAt.Before(now.Add(-m.holdTTL))
}

// expireStale trả ghế giữ quá hạn về AVAILABLE ngay khi đọc thấy, không đợi sweeper.
func (m *ReservationManager) expireStale(ctx context.Context, key repository.SeatKey, row *model.ShowtimeSeat, now time.Time) (bool, error) {
	ok, err := m.seats.CompareAndSwap(ctx, key,
		repository.ExpectStaleSelecting(row.HeldBy, now.Add(-m.holdTTL)),
		repository.AvailableState())
	if err != nil || !ok {
		return false, err
	}
	m.metrics.ExpiredHoldsReleased.WithLabelValues("lazy").Inc()
	m.publish(ctx, realtime.EventSeatsReleased, key.RoomId, key.ShowtimeId, []realtime.SeatChange{
		{SeatId: key.SeatId, Status: constants.SeatAvailable},
	}, "")
	return true, nil
}

func (m *ReservationManager) rollbackHold(ctx context.Context, showtime *model.Showtime, holder string, claimed []heldSeat) {
	for _, h := range claimed {
		key := repository.SeatKey{ShowtimeId: showtime.ID, SeatId: h.seatId, RoomId: showtime.RoomId}
		next := repository.AvailableState()
		if h.prevHeldAt != nil {
			next = repository.SelectingState(holder, *h.prevHeldAt)
		}
		ok, err := m.seats.CompareAndSwap(ctx, key, repository.ExpectSelecting(holder), next)
		if err != nil || !ok {
			// ghế vẫn ở SELECTING của holder, sweeper sẽ trả lại khi hết hạn
			logger.Error("Rollback hold failed",
				zap.Uint("showtimeId", showtime.ID), zap.Uint("seatId", h.seatId),
				zap.String("holder", holder), zap.Bool("matched", ok), zap.Error(err))
		}
	}
}

// Release trả các ghế holder đang giữ về AVAILABLE. Ghế không do holder giữ được bỏ qua.
func (m *ReservationManager) Release(ctx context.Context, req ReleaseRequest) ([]uint, error) {
	if req.HolderId == "" {
		return nil, validationError("holder is required")
	}
	if err := m.checkSeatIds(req.SeatIds); err != nil {
		return nil, err
	}
	showtime, err := m.loadShowtime(ctx, req.ShowtimeId, req.RoomId)
	if err != nil {
		return nil, err
	}

	released := make([]uint, 0, len(req.SeatIds))
	for _, seatId := range req.SeatIds {
		key := repository.SeatKey{ShowtimeId: showtime.ID, SeatId: seatId, RoomId: showtime.RoomId}
		ok, err := m.seats.CompareAndSwap(ctx, key, repository.ExpectSelecting(req.HolderId), repository.AvailableState())
		if err != nil {
			m.publishReleased(ctx, showtime.RoomId, showtime.ID, released)
			return released, internalError("failed to release seat", err)
		}
		if ok {
			released = append(released, seatId)
		}
	}
	m.publishReleased(ctx, showtime.RoomId, showtime.ID, released)
	return released, nil
}

// Confirm chuyển ghế đang được holder giữ sang BOOKED cho ticket.
// Ghế đã BOOKED bởi chính ticket được tính là đã xác nhận.
func (m *ReservationManager) Confirm(ctx context.Context, req ConfirmRequest) (confirmed, conflicts []uint, err error) {
	for _, seatId := range req.SeatIds {
		key := repository.SeatKey{ShowtimeId: req.ShowtimeId, SeatId: seatId, RoomId: req.RoomId}
		ok, err := m.seats.CompareAndSwap(ctx, key, repository.ExpectSelecting(req.HolderId), repository.BookedState(req.TicketId))
		if err != nil {
			return confirmed, conflicts, err
		}
		if !ok {
			current, err := m.seats.GetStatus(ctx, key)
			if err != nil {
				return confirmed, conflicts, err
			}
			if current == nil || current.Status != constants.SeatBooked || current.TicketId != req.TicketId {
				conflicts = append(conflicts, seatId)
				continue
			}
		}
		confirmed = append(confirmed, seatId)
	}
	return confirmed, conflicts, nil
}

// Revoke trả ghế BOOKED của ticket về AVAILABLE. Chỉ dùng khi ticket bị huỷ.
func (m *ReservationManager) Revoke(ctx context.Context, req RevokeRequest) ([]uint, error) {
	revoked := make([]uint, 0, len(req.SeatIds))
	for _, seatId := range req.SeatIds {
		key := repository.SeatKey{ShowtimeId: req.ShowtimeId, SeatId: seatId, RoomId: req.RoomId}
		ok, err := m.seats.CompareAndSwap(ctx, key, repository.ExpectBooked(req.TicketId), repository.AvailableState())
		if err != nil {
			return revoked, err
		}
		if ok {
			revoked = append(revoked, seatId)
		}
	}
	return revoked, nil
}

// ReleaseExpired trả các ghế giữ quá hạn về AVAILABLE. Ghế đã đổi trạng thái
// kể từ lúc quét (được đặt, được giữ lại) sẽ không khớp CAS và giữ nguyên.
func (m *ReservationManager) ReleaseExpired(ctx context.Context, stale []model.ShowtimeSeat) (int, error) {
	cutoff := m.clock.Now().UTC().Add(-m.holdTTL)
	released := make(map[realtime.ChannelKey][]uint)
	count := 0
	var firstErr error

	for _, row := range stale {
		key := repository.SeatKey{ShowtimeId: row.ShowtimeId, SeatId: row.SeatId, RoomId: row.RoomId}
		ok, err := m.seats.CompareAndSwap(ctx, key, repository.ExpectStaleSelecting(row.HeldBy, cutoff), repository.AvailableState())
		if err != nil {
			logger.Error("Release expired hold failed", zap.Stringer("seat", key), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			ck := realtime.ChannelKey{RoomId: row.RoomId, ShowtimeId: row.ShowtimeId}
			released[ck] = append(released[ck], row.SeatId)
			count++
		}
	}

	for ck, ids := range released {
		m.publishReleased(ctx, ck.RoomId, ck.ShowtimeId, ids)
	}
	m.metrics.ExpiredHoldsReleased.WithLabelValues("sweep").Add(float64(count))
	return count, firstErr
}

// Snapshot dựng sơ đồ ghế hiện tại của suất chiếu. Ghế giữ quá hạn được hiển thị AVAILABLE.
func (m *ReservationManager) Snapshot(ctx context.Context, showtimeId uint) (*model.SeatMap, error) {
	showtime, err := m.loadShowtime(ctx, showtimeId, 0)
	if err != nil {
		return nil, err
	}
	seats, err := m.catalog.ListSeatsByRoom(ctx, showtime.RoomId)
	if err != nil {
		return nil, internalError("failed to load seats", err)
	}
	rows, err := m.seats.ListByShowtime(ctx, showtime.ID)
	if err != nil {
		return nil, internalError("failed to load seat status", err)
	}

	status := make(map[uint]model.ShowtimeSeat, len(rows))
	for _, r := range rows {
		status[r.SeatId] = r
	}

	now := m.clock.Now().UTC()
	seatMap := &model.SeatMap{ShowtimeId: showtime.ID, RoomId: showtime.RoomId, Rows: make(map[string][]model.SeatUI)}
	for _, seat := range seats {
		var ui model.SeatUI
		if err := copier.Copy(&ui, &seat); err != nil {
			return nil, internalError("failed to map seat", err)
		}
		ui.Id = seat.ID
		ui.Label = seat.Label()
		ui.Status = constants.SeatAvailable

		if st, ok := status[seat.ID]; ok && !m.isStale(&st, now) {
			ui.Status = st.Status
			if st.Status == constants.SeatSelecting && st.HeldAt != nil {
				ui.HeldBy = st.HeldBy
				ui.ExpiredAt = timePtr(st.HeldAt.Add(m.holdTTL))
			}
		}
		seatMap.Rows[seat.Row] = append(seatMap.Rows[seat.Row], ui)
	}
	for _, row := range seatMap.Rows {
		sort.Slice(row, func(i, j int) bool { return row[i].Column < row[j].Column })
	}
	return seatMap, nil
}

func (m *ReservationManager) publishReleased(ctx context.Context, roomId, showtimeId uint, seatIds []uint) {
	if len(seatIds) == 0 {
		return
	}
	m.publish(ctx, realtime.EventSeatsReleased, roomId, showtimeId, seatChanges(seatIds, constants.SeatAvailable), "")
}

func (m *ReservationManager) publish(ctx context.Context, eventType string, roomId, showtimeId uint, seats []realtime.SeatChange, ticketId string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, realtime.Event{
		Type:       eventType,
		RoomId:     roomId,
		ShowtimeId: showtimeId,
		Seats:      seats,
		TicketId:   ticketId,
		At:         m.clock.Now().UTC(),
	})
}

func seatChanges(ids []uint, status string) []realtime.SeatChange {
	changes := make([]realtime.SeatChange, 0, len(ids))
	for _, id := range ids {
		changes = append(changes, realtime.SeatChange{SeatId: id, Status: status})
	}
	return changes
}

func timePtr(t time.Time) *time.Time {
	return &t
}
