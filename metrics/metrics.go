package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics gom các chỉ số của engine giữ ghế và đối soát thanh toán.
type Metrics struct {
	// Kết quả giữ ghế (result: success, conflict, invalid, error)
	HoldsTotal *prometheus.CounterVec

	// Kết quả tạo vé (result: success, conflict, invalid, error)
	TicketsTotal *prometheus.CounterVec

	// Số ghế được trả về do hết hạn giữ (source: sweep, lazy)
	ExpiredHoldsReleased *prometheus.CounterVec

	// Mã phản hồi gửi cho cổng thanh toán (path: ipn, return; code: 00, 01, ...)
	ReconcileTotal *prometheus.CounterVec

	SweepDuration prometheus.Histogram

	// Số kết nối websocket đang mở
	RealtimeSubscribers prometheus.Gauge
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HoldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_holds_total",
				Help: "Total number of seat hold attempts",
			},
			[]string{"result"},
		),
		TicketsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickets_created_total",
				Help: "Total number of ticket creation attempts",
			},
			[]string{"result"},
		),
		ExpiredHoldsReleased: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expired_holds_released_total",
				Help: "Seats returned to available after their hold expired",
			},
			[]string{"source"},
		),
		ReconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_reconcile_total",
				Help: "Payment gateway callbacks by acknowledgement code",
			},
			[]string{"path", "code"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "seat_sweep_duration_seconds",
				Help:    "Duration of one expiry sweep pass",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		RealtimeSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "realtime_subscribers",
				Help: "Currently connected seat-map subscribers",
			},
		),
	}

	reg.MustRegister(
		m.HoldsTotal,
		m.TicketsTotal,
		m.ExpiredHoldsReleased,
		m.ReconcileTotal,
		m.SweepDuration,
		m.RealtimeSubscribers,
	)

	return m
}

// NewNoop trả về Metrics đăng ký vào registry riêng, dùng cho test.
func NewNoop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}
