// Package config loads application configuration from environment
// variables.  A .env file, when present, is loaded by cmd/server before
// Load is called.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selectors.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"

	PaymentFake   = "fake"
	PaymentStripe = "stripe"

	BrokerRabbitMQ = "rabbitmq"
	BrokerKafka    = "kafka"
	BrokerNone     = "none"

	LockLocal = "local"
	LockRedis = "redis"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env      string // APP_ENV (dev/test/prod)
	Port     string // APP_PORT
	LogLevel string // LOG_LEVEL (debug/info/warn/error)

	StoreDriver string // STORE_DRIVER: mysql or memory
	DBUser      string // DB_USER
	DBPass      string // DB_PASS (empty allowed)
	DBHost      string // DB_HOST
	DBPort      string // DB_PORT
	DBName      string // DB_NAME
	DBMigrate   bool   // DB_MIGRATE: create tables at startup

	JWTSecret    string // JWT_SECRET signs backstage tokens
	AccessTTLMin int    // ACCESS_TOKEN_TTL_MIN for tokens minted by cmd/seed

	PaymentDriver   string // PAYMENT_DRIVER: fake or stripe
	StripeSecretKey string // STRIPE_SECRET_KEY
	StripeCurrency  string // STRIPE_CURRENCY

	EventBroker  string   // EVENT_BROKER: rabbitmq, kafka or none
	RabbitMQURL  string   // RABBITMQ_URL
	KafkaBrokers []string // KAFKA_BROKERS, comma separated
	KafkaTopic   string   // KAFKA_TOPIC
	OrdersLogDir string   // ORDERS_LOG_DIR, where the order consumer appends confirmations

	LockDriver string        // LOCK_DRIVER: local or redis
	LockTTL    time.Duration // LOCK_TTL bounds how long a crashed holder blocks a concert
	LockWait   time.Duration // LOCK_WAIT bounds how long a purchase waits for the lock

	TicketCodeSalt string // TICKET_CODE_SALT seeds hashids ticket codes
}

// Load reads configuration values from environment variables.  Every
// missing or invalid required variable is reported in the returned error.
func Load() (Config, error) {
	l := &loader{}
	c := Config{
		Env:      l.must("APP_ENV"),
		Port:     l.must("APP_PORT"),
		LogLevel: envStr("LOG_LEVEL", "info"),

		StoreDriver: l.oneOf("STORE_DRIVER", StoreMySQL, StoreMySQL, StoreMemory),
		DBPass:      os.Getenv("DB_PASS"),
		DBMigrate:   envBool("DB_MIGRATE", false),

		JWTSecret:    l.must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),

		PaymentDriver:  l.oneOf("PAYMENT_DRIVER", PaymentFake, PaymentFake, PaymentStripe),
		StripeCurrency: envStr("STRIPE_CURRENCY", "usd"),

		EventBroker:  l.oneOf("EVENT_BROKER", BrokerNone, BrokerRabbitMQ, BrokerKafka, BrokerNone),
		KafkaTopic:   envStr("KAFKA_TOPIC", "order.confirmed"),
		OrdersLogDir: envStr("ORDERS_LOG_DIR", "logs"),

		LockDriver: l.oneOf("LOCK_DRIVER", LockLocal, LockLocal, LockRedis),
		LockTTL:    envDur("LOCK_TTL", 30*time.Second),
		LockWait:   envDur("LOCK_WAIT", 5*time.Second),

		TicketCodeSalt: envStr("TICKET_CODE_SALT", "concert-ticketing"),
	}

	if c.StoreDriver == StoreMySQL {
		c.DBUser = l.must("DB_USER")
		c.DBHost = l.must("DB_HOST")
		c.DBPort = l.must("DB_PORT")
		c.DBName = l.must("DB_NAME")
	}
	if c.PaymentDriver == PaymentStripe {
		c.StripeSecretKey = l.must("STRIPE_SECRET_KEY")
	}
	switch c.EventBroker {
	case BrokerRabbitMQ:
		c.RabbitMQURL = l.must("RABBITMQ_URL")
	case BrokerKafka:
		c.KafkaBrokers = splitList(l.must("KAFKA_BROKERS"))
	}
	if c.Env == "prod" && c.TicketCodeSalt == "concert-ticketing" {
		l.fail("TICKET_CODE_SALT must be set in prod")
	}

	if len(l.problems) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(l.problems, "; "))
	}
	return c, nil
}

// loader accumulates problems so that one run reports all of them.
type loader struct {
	problems []string
}

func (l *loader) fail(msg string) { l.problems = append(l.problems, msg) }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		l.fail("missing required env var: " + key)
	}
	return v
}

// oneOf returns the lower-cased value of key, or def when unset.  Values
// outside allowed are reported.
func (l *loader) oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(envStr(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	l.fail(fmt.Sprintf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), v))
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
