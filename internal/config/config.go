package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress  string
	DatabaseURI string
	AuthSecret  string
	LogLevel    string

	GatewayURL            string
	GatewayAccessToken    string
	GatewayTimeout        time.Duration
	GatewayMaxRetries     int
	WebhookSecret         string
	WebhookConfirmTimeout time.Duration
	FrontendURL           string
	BackendURL            string
	Currency              string

	OrderTxTimeout time.Duration
	PaidOnCreate   bool

	NotificationPollInterval time.Duration
	NotificationBatchSize    int
	NotificationMaxAttempts  int
	NotificationRetryBackoff time.Duration
	WorkerPoolSize           int

	EventRelayInterval time.Duration
	KafkaBrokers       []string
	KafkaTopic         string

	ShutdownTimeout time.Duration
}

const (
	defaultRunAddress               = ":8080"
	defaultAuthSecret               = "change-me-in-production"
	defaultLogLevel                 = "info"
	defaultGatewayURL               = "https://api.mercadopago.com"
	defaultGatewayTimeout           = 10 * time.Second
	defaultGatewayMaxRetries        = 3
	defaultWebhookConfirmTimeout    = 5 * time.Second
	defaultFrontendURL              = "http://localhost:5173"
	defaultBackendURL               = "http://localhost:8080"
	defaultCurrency                 = "ARS"
	defaultOrderTxTimeout           = 5 * time.Second
	defaultNotificationPollInterval = 5 * time.Second
	defaultNotificationBatchSize    = 32
	defaultNotificationMaxAttempts  = 10
	defaultNotificationRetryBackoff = 10 * time.Second
	defaultWorkerPoolSize           = 4
	defaultEventRelayInterval       = 2 * time.Second
	defaultKafkaTopic               = "orderflow.order-events"
	defaultShutdownTimeout          = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:               getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:              getString(lookup, "DATABASE_URI", ""),
		AuthSecret:               getString(lookup, "AUTH_SECRET", defaultAuthSecret),
		LogLevel:                 getString(lookup, "LOG_LEVEL", defaultLogLevel),
		GatewayURL:               getString(lookup, "PAYMENT_GATEWAY_URL", defaultGatewayURL),
		GatewayAccessToken:       getString(lookup, "PAYMENT_ACCESS_TOKEN", ""),
		GatewayTimeout:           getDuration(lookup, "GATEWAY_TIMEOUT", defaultGatewayTimeout),
		GatewayMaxRetries:        getInt(lookup, "GATEWAY_MAX_RETRIES", defaultGatewayMaxRetries),
		WebhookSecret:            getString(lookup, "WEBHOOK_SECRET", ""),
		WebhookConfirmTimeout:    getDuration(lookup, "WEBHOOK_CONFIRM_TIMEOUT", defaultWebhookConfirmTimeout),
		FrontendURL:              getString(lookup, "FRONTEND_URL", defaultFrontendURL),
		BackendURL:               getString(lookup, "BACKEND_URL", defaultBackendURL),
		Currency:                 getString(lookup, "PAYMENT_CURRENCY", defaultCurrency),
		OrderTxTimeout:           getDuration(lookup, "ORDER_TX_TIMEOUT", defaultOrderTxTimeout),
		PaidOnCreate:             getBool(lookup, "ORDERS_PAID_ON_CREATE", false),
		NotificationPollInterval: getDuration(lookup, "NOTIFICATION_POLL_INTERVAL", defaultNotificationPollInterval),
		NotificationBatchSize:    getInt(lookup, "NOTIFICATION_BATCH_SIZE", defaultNotificationBatchSize),
		NotificationMaxAttempts:  getInt(lookup, "NOTIFICATION_MAX_ATTEMPTS", defaultNotificationMaxAttempts),
		NotificationRetryBackoff: getDuration(lookup, "NOTIFICATION_RETRY_BACKOFF", defaultNotificationRetryBackoff),
		WorkerPoolSize:           getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		EventRelayInterval:       getDuration(lookup, "EVENT_RELAY_INTERVAL", defaultEventRelayInterval),
		KafkaTopic:               getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
		ShutdownTimeout:          getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("orderflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	durations := map[string]*time.Duration{
		"gateway-timeout":  &cfg.GatewayTimeout,
		"webhook-timeout":  &cfg.WebhookConfirmTimeout,
		"order-timeout":    &cfg.OrderTxTimeout,
		"poll-interval":    &cfg.NotificationPollInterval,
		"retry-backoff":    &cfg.NotificationRetryBackoff,
		"relay-interval":   &cfg.EventRelayInterval,
		"shutdown-timeout": &cfg.ShutdownTimeout,
	}
	durationStrs := make(map[string]*string, len(durations))
	for name, target := range durations {
		value := target.String()
		durationStrs[name] = &value
		fs.StringVar(durationStrs[name], name, value, "duration setting "+name)
	}

	kafkaBrokers, _ := lookup("KAFKA_BROKERS")

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "Secret for verifying auth tokens")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.GatewayURL, "gateway-url", cfg.GatewayURL, "Payment gateway base URL")
	fs.StringVar(&cfg.GatewayAccessToken, "gateway-token", cfg.GatewayAccessToken, "Payment gateway access token")
	fs.IntVar(&cfg.GatewayMaxRetries, "gateway-retries", cfg.GatewayMaxRetries, "Retries for failed gateway calls")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "Secret for webhook signature validation")
	fs.StringVar(&cfg.FrontendURL, "frontend-url", cfg.FrontendURL, "Public storefront URL for payer redirects")
	fs.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "Public API URL the gateway calls back")
	fs.StringVar(&cfg.Currency, "currency", cfg.Currency, "Currency of payment items")
	fs.BoolVar(&cfg.PaidOnCreate, "paid-on-create", cfg.PaidOnCreate, "Create orders directly in PAID status")
	fs.IntVar(&cfg.NotificationBatchSize, "poll-batch", cfg.NotificationBatchSize, "Maximum notifications per polling batch")
	fs.IntVar(&cfg.NotificationMaxAttempts, "max-attempts", cfg.NotificationMaxAttempts, "Attempts before a notification is abandoned")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent notification workers")
	fs.StringVar(&kafkaBrokers, "kafka-brokers", kafkaBrokers, "Comma separated Kafka brokers")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for order events")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	for name, target := range durations {
		d, err := time.ParseDuration(*durationStrs[name])
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		*target = d
	}

	cfg.KafkaBrokers = splitList(kafkaBrokers)

	secretFiles := map[string]*string{
		"AUTH_SECRET_FILE":          &cfg.AuthSecret,
		"PAYMENT_ACCESS_TOKEN_FILE": &cfg.GatewayAccessToken,
	}
	for key, target := range secretFiles {
		if path, ok := lookup(key); ok && path != "" {
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", strings.ToLower(key), err)
			}
			*target = strings.TrimSpace(string(content))
		}
	}

	normalize(cfg)

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.GatewayAccessToken == "" {
		return nil, fmt.Errorf("payment gateway access token must be provided")
	}

	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}
	if cfg.GatewayMaxRetries < 0 {
		cfg.GatewayMaxRetries = 0
	}
	if cfg.WebhookConfirmTimeout <= 0 {
		cfg.WebhookConfirmTimeout = defaultWebhookConfirmTimeout
	}
	if cfg.OrderTxTimeout <= 0 {
		cfg.OrderTxTimeout = defaultOrderTxTimeout
	}
	if cfg.NotificationPollInterval <= 0 {
		cfg.NotificationPollInterval = defaultNotificationPollInterval
	}
	if cfg.NotificationBatchSize <= 0 {
		cfg.NotificationBatchSize = defaultNotificationBatchSize
	}
	if cfg.NotificationMaxAttempts <= 0 {
		cfg.NotificationMaxAttempts = defaultNotificationMaxAttempts
	}
	if cfg.NotificationRetryBackoff <= 0 {
		cfg.NotificationRetryBackoff = defaultNotificationRetryBackoff
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.EventRelayInterval <= 0 {
		cfg.EventRelayInterval = defaultEventRelayInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
