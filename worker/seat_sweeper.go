package worker

import (
	"context"
	"time"

	"cinema_booking/logger"
	"cinema_booking/metrics"
	"cinema_booking/repository"
	"cinema_booking/service"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const sweepBatchSize = 500

// SeatSweeper định kỳ trả các ghế SELECTING quá hạn về AVAILABLE.
// Ghế BOOKED không bao giờ bị quét.
type SeatSweeper struct {
	seats        repository.SeatStore
	reservations *service.ReservationManager
	metrics      *metrics.Metrics
	interval     time.Duration
	scheduler    gocron.Scheduler
}

func NewSeatSweeper(seats repository.SeatStore, reservations *service.ReservationManager, m *metrics.Metrics, interval time.Duration) *SeatSweeper {
	if m == nil {
		m = metrics.NewNoop()
	}
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &SeatSweeper{
		seats:        seats,
		reservations: reservations,
		metrics:      m,
		interval:     interval,
	}
}

func (s *SeatSweeper) Start() error {
	scheduler, err := gocron.NewScheduler(
		gocron.WithClock(s.reservations.Clock()),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func(ctx context.Context) {
			if _, err := s.Sweep(ctx); err != nil {
				logger.Error("Seat sweep failed", zap.Error(err))
			}
		}),
		gocron.WithName("seat-sweeper"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}

	s.scheduler = scheduler
	scheduler.Start()
	logger.Info("Seat sweeper started", zap.Duration("interval", s.interval), zap.Duration("holdTTL", s.reservations.HoldTTL()))
	return nil
}

func (s *SeatSweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

// Sweep chạy một lượt quét, trả về số ghế đã được trả.
func (s *SeatSweeper) Sweep(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(s.metrics.SweepDuration)
	defer timer.ObserveDuration()

	cutoff := s.reservations.Clock().Now().UTC().Add(-s.reservations.HoldTTL())
	total := 0
	for {
		stale, err := s.seats.FindStaleHolds(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return total, err
		}
		if len(stale) == 0 {
			break
		}

		released, err := s.reservations.ReleaseExpired(ctx, stale)
		total += released
		if err != nil {
			return total, err
		}
		// lô chưa đầy hoặc không trả được ghế nào thì dừng, tránh quét lặp
		if len(stale) < sweepBatchSize || released == 0 {
			break
		}
	}

	if total > 0 {
		logger.Info("Expired holds released", zap.Int("count", total), zap.Time("cutoff", cutoff))
	}
	return total, nil
}
