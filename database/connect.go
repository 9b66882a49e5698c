package database

import (
	"context"
	"fmt"
	"time"

	"cinema_booking/config"
	"cinema_booking/logger"
	"cinema_booking/model"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func ConnectDB(cfg config.DatabaseConfig, production bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	level := gormlogger.Warn
	if production {
		level = gormlogger.Error
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	logger.Info("Connection Opened to Database", zap.String("host", cfg.Host), zap.String("db", cfg.Name))

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("Database Migrated")

	DB = db
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Room{},
		&model.Seat{},
		&model.Showtime{},
		&model.ShowtimeSeat{},
		&model.Combo{},
		&model.Voucher{},
		&model.Ticket{},
		&model.TicketSeat{},
		&model.TicketCombo{},
		&model.Payment{},
	)
}

// ConnectMongo mở kết nối tới MongoDB, dùng khi STORE_BACKEND=mongo.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	logger.Info("Connection Opened to MongoDB", zap.String("db", cfg.Database))
	return client, client.Database(cfg.Database), nil
}
