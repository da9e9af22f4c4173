package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	AdminKeyHash  string

	// Timezone keys the one-check-per-worker-per-day rule. The reference day
	// is always computed here, never in the client's locale.
	Timezone string

	Redis RedisConfig
	Kafka KafkaConfig
}

// RedisConfig configures the optional catalog cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CatalogTTL   time.Duration
}

// KafkaConfig configures the notification outbox publisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("GEARCHECK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	tz := os.Getenv("CHECK_TIMEZONE")
	if tz == "" {
		tz = "Europe/Paris"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}
	topic := os.Getenv("KAFKA_NOTIFICATIONS_TOPIC")
	if topic == "" {
		topic = "gearcheck.notifications"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: jwtSigningKey,
		AdminKeyHash:  os.Getenv("ADMIN_KEY_HASH"),
		Timezone:      tz,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			CatalogTTL:   5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:      brokers,
			Topic:        topic,
			PollInterval: 2 * time.Second,
		},
	}
}

// Location resolves the reference timezone, falling back to UTC when the
// configured zone is unknown.
func (s Server) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
