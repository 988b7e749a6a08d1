package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// DB
	DBUser     string `envconfig:"DB_USER" default:"planora"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"planora"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME" default:"planora"`

	// JWT
	JWTSecret   string `envconfig:"JWT_SECRET" default:"supersecret"`
	JWTExpireHr int    `envconfig:"JWT_EXPIRE_HR" default:"72"`

	// Redis (asynq email queue)
	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	// RabbitMQ (integration events, optional)
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"planora.bookings"`

	// Booking
	BookingExpiryHours int `envconfig:"BOOKING_EXPIRY_HOURS" default:"48"`

	// Network
	HTTPPort string `envconfig:"PORT" default:"8080"`
}

// Load reads .env if present, then the process environment.
func Load() (App, error) {
	_ = godotenv.Load()
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
