package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOLD_TTL", "")
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("APP_URL", "")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, 2*time.Minute, cfg.Booking.SweepInterval)
	assert.Equal(t, 15*time.Minute, cfg.Booking.PaymentWindow)
	assert.Equal(t, "postgres", cfg.Booking.StoreBackend)
	assert.Equal(t, 8, cfg.Booking.MaxSeatsPerHold)
	assert.Equal(t, "http://localhost:8002/vnpay/return", cfg.VNPay.ReturnURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HOLD_TTL", "90s")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("STORE_BACKEND", "MONGO")
	t.Setenv("MAX_SEATS_PER_HOLD", "4")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("APP_URL", "https://tickets.example.vn")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.Booking.HoldTTL)
	assert.Equal(t, 30*time.Second, cfg.Booking.SweepInterval)
	assert.Equal(t, "mongo", cfg.Booking.StoreBackend)
	assert.Equal(t, 4, cfg.Booking.MaxSeatsPerHold)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "https://tickets.example.vn/vnpay/return", cfg.VNPay.ReturnURL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("HOLD_TTL", "five minutes")
	t.Setenv("MAX_SEATS_PER_HOLD", "many")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, 8, cfg.Booking.MaxSeatsPerHold)
}
