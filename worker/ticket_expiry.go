package worker

import (
	"context"

	"cinema_booking/logger"
	"cinema_booking/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TicketExpiry huỷ vé PENDING quá hạn thanh toán theo lịch cron.
type TicketExpiry struct {
	booking *service.BookingCoordinator
	spec    string
	cron    *cron.Cron
}

func NewTicketExpiry(booking *service.BookingCoordinator, spec string) *TicketExpiry {
	if spec == "" {
		spec = "@every 1m"
	}
	return &TicketExpiry{booking: booking, spec: spec}
}

func (t *TicketExpiry) Start(ctx context.Context) error {
	t.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	_, err := t.cron.AddFunc(t.spec, func() { t.Run(ctx) })
	if err != nil {
		return err
	}

	t.cron.Start()
	logger.Info("Ticket expiry scheduler started", zap.String("spec", t.spec))
	return nil
}

// Stop dừng lịch và chờ lượt đang chạy kết thúc.
func (t *TicketExpiry) Stop() {
	if t.cron == nil {
		return
	}
	<-t.cron.Stop().Done()
}

func (t *TicketExpiry) Run(ctx context.Context) int {
	n, err := t.booking.ExpirePendingTickets(ctx)
	if err != nil {
		logger.Error("Expire pending tickets failed", zap.Error(err))
		return n
	}
	if n > 0 {
		logger.Info("Pending tickets expired", zap.Int("count", n))
	}
	return n
}
