package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"testing"
	"time"

	"cinema_booking/config"
	"cinema_booking/constants"
	"cinema_booking/database"
	"cinema_booking/metrics"
	"cinema_booking/model"
	"cinema_booking/realtime"
	"cinema_booking/repository"
	"cinema_booking/utils"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type fixture struct {
	db           *gorm.DB
	clock        fakeClock
	hub          *realtime.Hub
	metrics      *metrics.Metrics
	store        repository.SeatStore
	tickets      *repository.TicketRepository
	payments     *repository.PaymentRepository
	reservations *ReservationManager
	booking      *BookingCoordinator
	reconciler   *PaymentReconciler
	vnpay        *utils.VNPay

	room     model.Room
	showtime model.Showtime
	seats    map[string]model.Seat
	combo    model.Combo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(baseTime)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return clock.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	f := &fixture{
		db:       db,
		clock:    clock,
		hub:      realtime.NewHub(256, nil),
		metrics:  metrics.NewNoop(),
		store:    repository.NewGormSeatStore(db),
		tickets:  repository.NewTicketRepository(db),
		payments: repository.NewPaymentRepository(db),
		vnpay: utils.NewVNPay(config.VNPayConfig{
			TmnCode:    "DEMO0001",
			HashSecret: "TESTSECRET",
			BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
			ReturnURL:  "http://localhost:8002/vnpay/return",
		}),
		seats: make(map[string]model.Seat),
	}
	f.seed(t)

	f.reservations = NewReservationManager(f.store, repository.NewCatalogRepository(db), f.hub,
		WithClock(clock),
		WithHoldTTL(5*time.Minute),
		WithMaxSeatsPerHold(4),
		WithMetrics(f.metrics),
	)
	f.booking = NewBookingCoordinator(f.reservations, f.tickets, f.payments, 15*time.Minute)
	f.reconciler = NewPaymentReconciler(f.booking, f.vnpay)
	return f
}

func (f *fixture) seed(t *testing.T) {
	f.room = model.Room{Name: "Room 1", RoomNumber: 1}
	require.NoError(t, f.db.Create(&f.room).Error)

	for _, row := range []string{"A", "B", "C"} {
		for col := 1; col <= 3; col++ {
			seat := model.Seat{RoomId: f.room.ID, Row: row, Column: col, Category: constants.SeatStandard, Price: 75000}
			if row == "C" {
				seat.Category = constants.SeatVIP
				seat.Price = 90000
			}
			require.NoError(t, f.db.Create(&seat).Error)
			f.seats[seat.Label()] = seat
		}
	}

	f.showtime = model.Showtime{
		PublicCode: "ST-1",
		StartTime:  baseTime.Add(4 * time.Hour),
		EndTime:    baseTime.Add(6 * time.Hour),
		MovieId:    1,
		RoomId:     f.room.ID,
	}
	require.NoError(t, f.db.Create(&f.showtime).Error)

	f.combo = model.Combo{Name: "Popcorn", Price: 65000, IsActive: true}
	require.NoError(t, f.db.Create(&f.combo).Error)

	voucher := model.Voucher{
		Code:          "SALE10",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		MaxDiscount:   50000,
		StartDate:     baseTime.Add(-24 * time.Hour),
		EndDate:       baseTime.Add(24 * time.Hour),
		Status:        "active",
	}
	require.NoError(t, f.db.Create(&voucher).Error)
}

func (f *fixture) ids(labels ...string) []uint {
	ids := make([]uint, 0, len(labels))
	for _, l := range labels {
		ids = append(ids, f.seats[l].ID)
	}
	return ids
}

func (f *fixture) status(t *testing.T, label string) model.ShowtimeSeat {
	t.Helper()
	row, err := f.store.GetStatus(context.Background(), repository.SeatKey{ShowtimeId: f.showtime.ID, SeatId: f.seats[label].ID})
	require.NoError(t, err)
	if row == nil {
		return model.ShowtimeSeat{Status: constants.SeatAvailable}
	}
	return *row
}

func (f *fixture) subscribe() *realtime.Subscription {
	return f.hub.Subscribe(realtime.ChannelKey{RoomId: f.room.ID, ShowtimeId: f.showtime.ID})
}

func (f *fixture) hold(labels []string, holder string) (*HoldResult, error) {
	return f.reservations.Hold(context.Background(), HoldRequest{
		ShowtimeId: f.showtime.ID,
		RoomId:     f.room.ID,
		SeatIds:    f.ids(labels...),
		HolderId:   holder,
	})
}

func (f *fixture) createTicket(t *testing.T, buyer string, labels ...string) *model.Ticket {
	t.Helper()
	ticket, err := f.booking.CreateTicket(context.Background(), CreateTicketRequest{
		BuyerId:     buyer,
		ShowtimeId:  f.showtime.ID,
		SeatIds:     f.ids(labels...),
		TotalAmount: f.priceOf(labels...),
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) priceOf(labels ...string) int64 {
	var total int64
	for _, l := range labels {
		total += f.seats[l].Price
	}
	return total
}

// callback dựng query VNPay đã ký như cổng thanh toán gửi về.
func (f *fixture) callback(txnRef string, amount int64, code string) url.Values {
	q := url.Values{}
	q.Set("vnp_TmnCode", "DEMO0001")
	q.Set("vnp_TxnRef", txnRef)
	q.Set("vnp_Amount", strconv.FormatInt(amount*100, 10))
	q.Set("vnp_ResponseCode", code)
	q.Set("vnp_TransactionStatus", code)
	q.Set("vnp_TransactionNo", "14112233")
	q.Set("vnp_BankCode", "NCB")
	q.Set("vnp_PayDate", "20250601171500")
	q.Set("vnp_SecureHash", f.vnpay.Sign(q))
	return q
}

func drain(sub *realtime.Subscription) []realtime.Event {
	var events []realtime.Event
	for {
		select {
		case ev := <-sub.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func eventsOfType(events []realtime.Event, eventType string) []realtime.Event {
	var out []realtime.Event
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
