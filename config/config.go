package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadEnvOnce sync.Once

// Config trả về giá trị biến môi trường, nạp file .env ở lần gọi đầu tiên.
func Config(key string) string {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("Không tìm thấy file .env, dùng biến môi trường hệ thống")
		}
	})
	return os.Getenv(key)
}

type AppConfig struct {
	Env         string
	Port        string
	AppURL      string
	CORSOrigins string
	JWTSecret   string

	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	VNPay    VNPayConfig
	Booking  BookingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig không bắt buộc; Addr rỗng thì tắt relay giữa các instance.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	BaseURL    string
	ReturnURL  string
}

type BookingConfig struct {
	// StoreBackend chọn nơi lưu trạng thái ghế: "postgres" hoặc "mongo".
	StoreBackend     string
	HoldTTL          time.Duration
	SweepInterval    time.Duration
	PaymentWindow    time.Duration
	TicketExpirySpec string
	MaxSeatsPerHold  int
}

func Load() *AppConfig {
	appURL := getEnv("APP_URL", "http://localhost:8002")
	return &AppConfig{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("APP_PORT", "8002"),
		AppURL:      appURL,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173"),
		JWTSecret:   Config("JWT_SECRET"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getIntEnv("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "cinema_booking"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "cinema_booking"),
		},
		Redis: RedisConfig{
			Addr:     Config("REDIS_ADDR"),
			Password: Config("REDIS_PASSWORD"),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		VNPay: VNPayConfig{
			TmnCode:    Config("VNP_TMNCODE"),
			HashSecret: Config("VNP_HASHSECRET"),
			BaseURL:    getEnv("VNP_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:  appURL + "/vnpay/return",
		},
		Booking: BookingConfig{
			StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", "postgres")),
			HoldTTL:          getDurationEnv("HOLD_TTL", 5*time.Minute),
			SweepInterval:    getDurationEnv("SWEEP_INTERVAL", 2*time.Minute),
			PaymentWindow:    getDurationEnv("PAYMENT_WINDOW", 15*time.Minute),
			TicketExpirySpec: getEnv("TICKET_EXPIRY_SPEC", "@every 1m"),
			MaxSeatsPerHold:  getIntEnv("MAX_SEATS_PER_HOLD", 8),
		},
	}
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := Config(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := Config(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := Config(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
