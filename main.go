package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinema_booking/config"
	"cinema_booking/constants"
	"cinema_booking/database"
	"cinema_booking/handler"
	"cinema_booking/logger"
	"cinema_booking/metrics"
	"cinema_booking/realtime"
	"cinema_booking/repository"
	"cinema_booking/router"
	"cinema_booking/service"
	"cinema_booking/utils"
	"cinema_booking/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(cfg.Database, cfg.IsProduction())
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	if !cfg.IsProduction() {
		if err := database.SeedData(db, time.Now()); err != nil {
			logger.Warn("Seed data failed", zap.Error(err))
		}
	}

	var seats repository.SeatStore = repository.NewGormSeatStore(db)
	if cfg.Booking.StoreBackend == constants.StoreBackendMongo {
		client, mdb, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			logger.Fatal("Failed to connect mongo", zap.Error(err))
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		store := repository.NewMongoSeatStore(mdb.Collection("showtime_seats"))
		if err := store.EnsureIndexes(ctx); err != nil {
			logger.Fatal("Failed to create mongo indexes", zap.Error(err))
		}
		seats = store
	}
	logger.Info("Seat store ready", zap.String("backend", cfg.Booking.StoreBackend))

	m := metrics.New()
	hub := realtime.NewHub(64, m)

	var relay *realtime.RedisRelay
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		relay = realtime.NewRedisRelay(rdb, hub)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Redis relay stopped", zap.Error(err))
			}
		}()
	}
	bus := realtime.NewBus(hub, relay)

	reservations := service.NewReservationManager(seats, repository.NewCatalogRepository(db), bus,
		service.WithHoldTTL(cfg.Booking.HoldTTL),
		service.WithMaxSeatsPerHold(cfg.Booking.MaxSeatsPerHold),
		service.WithMetrics(m),
	)
	booking := service.NewBookingCoordinator(reservations,
		repository.NewTicketRepository(db), repository.NewPaymentRepository(db), cfg.Booking.PaymentWindow)
	reconciler := service.NewPaymentReconciler(booking, utils.NewVNPay(cfg.VNPay))

	sweeper := worker.NewSeatSweeper(seats, reservations, m, cfg.Booking.SweepInterval)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start seat sweeper", zap.Error(err))
	}
	expiry := worker.NewTicketExpiry(booking, cfg.Booking.TicketExpirySpec)
	if err := expiry.Start(ctx); err != nil {
		logger.Fatal("Failed to start ticket expiry", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept",
		AllowCredentials: true,
		MaxAge:           600,
	}))

	router.SetupRoutes(app, handler.New(reservations, booking, reconciler, bus), cfg.JWTSecret)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Fiber shutdown failed", zap.Error(err))
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}

	if err := sweeper.Stop(); err != nil {
		logger.Error("Seat sweeper stop failed", zap.Error(err))
	}
	expiry.Stop()
}
