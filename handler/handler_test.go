package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"cinema_booking/config"
	"cinema_booking/constants"
	"cinema_booking/database"
	"cinema_booking/handler"
	"cinema_booking/metrics"
	"cinema_booking/model"
	"cinema_booking/realtime"
	"cinema_booking/repository"
	"cinema_booking/router"
	"cinema_booking/service"
	"cinema_booking/utils"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testServer struct {
	app      *fiber.App
	db       *gorm.DB
	vnpay    *utils.VNPay
	showtime model.Showtime
	seats    []model.Seat
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	s := &testServer{db: db, vnpay: utils.NewVNPay(config.VNPayConfig{
		TmnCode:    "DEMO0001",
		HashSecret: "TESTSECRET",
		BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8002/vnpay/return",
	})}

	room := model.Room{Name: "Room 1", RoomNumber: 1}
	require.NoError(t, db.Create(&room).Error)
	for col := 1; col <= 4; col++ {
		seat := model.Seat{RoomId: room.ID, Row: "A", Column: col, Category: constants.SeatStandard, Price: 75000}
		require.NoError(t, db.Create(&seat).Error)
		s.seats = append(s.seats, seat)
	}
	s.showtime = model.Showtime{
		PublicCode: "ST-1",
		StartTime:  time.Now().Add(3 * time.Hour),
		EndTime:    time.Now().Add(5 * time.Hour),
		RoomId:     room.ID,
	}
	require.NoError(t, db.Create(&s.showtime).Error)

	m := metrics.NewNoop()
	bus := realtime.NewBus(realtime.NewHub(16, m), nil)
	reservations := service.NewReservationManager(repository.NewGormSeatStore(db), repository.NewCatalogRepository(db), bus,
		service.WithMetrics(m))
	booking := service.NewBookingCoordinator(reservations,
		repository.NewTicketRepository(db), repository.NewPaymentRepository(db), 15*time.Minute)
	reconciler := service.NewPaymentReconciler(booking, s.vnpay)

	s.app = fiber.New()
	router.SetupRoutes(s.app, handler.New(reservations, booking, reconciler, bus), "secret")
	return s
}

type envelope struct {
	Status             string          `json:"status"`
	Message            string          `json:"message"`
	KeyError           string          `json:"keyError"`
	UnavailableSeatIds []uint          `json:"unavailableSeatIds"`
	Data               json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *testServer) call(t *testing.T, method, path string, body any, data any) (int, envelope) {
	t.Helper()
	status, raw := s.do(t, method, path, body)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return status, env
}

func (s *testServer) showtimePath(suffix string) string {
	return "/api/v1/showtimes/" + strconv.FormatUint(uint64(s.showtime.ID), 10) + suffix
}

func TestHoldAndRelease(t *testing.T) {
	s := newServer(t)

	var held service.HoldResult
	status, _ := s.call(t, http.MethodPost, s.showtimePath("/hold"), fiber.Map{
		"roomId":  s.showtime.RoomId,
		"seatIds": []uint{s.seats[0].ID, s.seats[1].ID},
	}, &held)
	require.Equal(t, http.StatusOK, status)
	assert.Regexp(t, `^GUEST_`, held.HeldBy)
	assert.Len(t, held.HeldSeatIds, 2)

	status, env := s.call(t, http.MethodPost, s.showtimePath("/hold"), fiber.Map{
		"roomId":         s.showtime.RoomId,
		"seatIds":        []uint{s.seats[1].ID, s.seats[2].ID},
		"guestSessionId": "GUEST_other",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, constants.SEAT_UNAVAILABLE, env.KeyError)
	assert.Equal(t, []uint{s.seats[1].ID}, env.UnavailableSeatIds)

	var released struct {
		ReleasedSeatIds []uint `json:"releasedSeatIds"`
	}
	status, _ = s.call(t, http.MethodPost, s.showtimePath("/release"), fiber.Map{
		"roomId":  s.showtime.RoomId,
		"seatIds": []uint{s.seats[1].ID},
		"heldBy":  held.HeldBy,
	}, &released)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []uint{s.seats[1].ID}, released.ReleasedSeatIds)

	var seatMap model.SeatMap
	status, _ = s.call(t, http.MethodGet, s.showtimePath("/seats"), nil, &seatMap)
	require.Equal(t, http.StatusOK, status)
	row := seatMap.Rows["A"]
	require.Len(t, row, 4)
	assert.Equal(t, constants.SeatSelecting, row[0].Status)
	assert.NotNil(t, row[0].ExpiredAt)
	assert.Equal(t, constants.SeatAvailable, row[1].Status)
}

func TestHold_BadRequests(t *testing.T) {
	s := newServer(t)

	status, env := s.call(t, http.MethodPost, "/api/v1/showtimes/abc/hold", fiber.Map{"roomId": 1, "seatIds": []uint{1}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, constants.DATA_INPUT_INVALID, env.KeyError)

	status, _ = s.call(t, http.MethodPost, s.showtimePath("/hold"), fiber.Map{"roomId": s.showtime.RoomId, "seatIds": []uint{}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.call(t, http.MethodPost, s.showtimePath("/hold"), fiber.Map{"roomId": s.showtime.RoomId + 100, "seatIds": []uint{s.seats[0].ID}}, nil)
	assert.Equal(t, http.StatusBadRequest, status, env.Message)

	status, env = s.call(t, http.MethodGet, "/api/v1/showtimes/9999/seats", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, constants.NOT_FOUND, env.KeyError)

	status, _ = s.call(t, http.MethodPost, s.showtimePath("/release"), fiber.Map{"roomId": s.showtime.RoomId, "seatIds": []uint{s.seats[0].ID}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTicketPaymentFlow(t *testing.T) {
	s := newServer(t)

	var ticket model.Ticket
	status, env := s.call(t, http.MethodPost, "/api/v1/tickets", fiber.Map{
		"showtimeId":  s.showtime.ID,
		"seatIds":     []uint{s.seats[0].ID, s.seats[1].ID},
		"totalAmount": 150000,
		"heldBy":      "GUEST_buyer",
	}, &ticket)
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, constants.TicketPending, ticket.Status)
	assert.Equal(t, "GUEST_buyer", ticket.BuyerId)

	status, _ = s.call(t, http.MethodPost, "/api/v1/tickets", fiber.Map{
		"showtimeId":  s.showtime.ID,
		"seatIds":     []uint{s.seats[1].ID},
		"totalAmount": 75000,
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	var fetched model.Ticket
	status, _ = s.call(t, http.MethodGet, "/api/v1/tickets/"+ticket.ID, nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, ticket.PublicCode, fetched.PublicCode)

	status, _ = s.call(t, http.MethodGet, "/api/v1/tickets/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	var link model.PaymentLink
	status, env = s.call(t, http.MethodPost, "/api/v1/payments", fiber.Map{"ticketId": ticket.ID, "amount": 150000}, &link)
	require.Equal(t, http.StatusOK, status, env.Message)
	require.NotEmpty(t, link.TxnRef)

	q := url.Values{}
	q.Set("vnp_TmnCode", "DEMO0001")
	q.Set("vnp_TxnRef", link.TxnRef)
	q.Set("vnp_Amount", "15000000")
	q.Set("vnp_ResponseCode", "00")
	q.Set("vnp_TransactionStatus", "00")
	q.Set("vnp_TransactionNo", "14112233")
	q.Set("vnp_BankCode", "NCB")
	q.Set("vnp_SecureHash", s.vnpay.Sign(q))

	var ack model.IPNResponse
	status, raw := s.do(t, http.MethodGet, "/vnpay/ipn?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.Equal(t, constants.RspConfirmSuccess, ack.RspCode)

	var result model.BookingResult
	status, raw = s.do(t, http.MethodGet, "/vnpay/return?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "success", result.Status)
	assert.NotEmpty(t, result.QRCode)

	q.Set("vnp_Amount", "100")
	status, raw = s.do(t, http.MethodGet, "/vnpay/ipn?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.Equal(t, constants.RspChecksumFailed, ack.RspCode)

	status, _ = s.call(t, http.MethodPost, "/api/v1/payments", fiber.Map{"ticketId": ticket.ID, "amount": 150000}, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestCreateTicket_ZeroTotal(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.db.Create(&model.Voucher{
		Code:          "FREE",
		DiscountType:  model.DiscountFixed,
		DiscountValue: 1000000,
		StartDate:     time.Now().Add(-time.Hour),
		EndDate:       time.Now().Add(time.Hour),
		Status:        "active",
	}).Error)

	var ticket model.Ticket
	status, env := s.call(t, http.MethodPost, "/api/v1/tickets", fiber.Map{
		"showtimeId":  s.showtime.ID,
		"seatIds":     []uint{s.seats[3].ID},
		"voucherCode": "FREE",
		"totalAmount": 0,
	}, &ticket)
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, constants.TicketConfirmed, ticket.Status)
	assert.Zero(t, ticket.TotalAmount)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	status, raw := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}
