package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultShippingFee       = int64(99)
	defaultFreeShippingAbove = int64(2999)
	defaultLowStockThreshold = 5
	defaultLoyaltyRupees     = int64(100)
	defaultOrderNumberPrefix = "TT"
	defaultSupportEmail      = "support@thulasitextiles.in"
	defaultDispatchWorkers   = 4
	defaultDispatchQueueSize = 256
	defaultDispatchTimeout   = 10 * time.Second

	defaultIdempotencyHeader       = "Idempotency-Key"
	defaultIdempotencyTTL          = 24 * time.Hour
	defaultIdempotencyCleanup      = 10 * time.Minute
	defaultIdempotencyCleanupBatch = 100
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	PubSub      PubSubConfig
	Store       StoreConfig
	Dispatcher  DispatcherConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig names the topics carrying outbound email and messaging jobs.
type PubSubConfig struct {
	ProjectID      string
	EmailTopic     string
	MessagingTopic string
}

// StoreConfig holds the storefront business parameters: shipping pricing,
// stock alerting, loyalty accrual, and order numbering.
type StoreConfig struct {
	ShippingFee       int64
	FreeShippingAbove int64
	LowStockThreshold int
	LoyaltyRupees     int64
	OrderNumberPrefix string
	SupportEmail      string
}

// DispatcherConfig bounds the background side-effect worker pool.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// IdempotencyConfig tunes the replay protection applied to mutating requests.
// A zero CleanupInterval disables the background sweep of expired records.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("config: context is required")
	}

	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "API_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:      stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			EmailTopic:     stringWithDefault(lookup, "API_PUBSUB_EMAIL_TOPIC", "transactional-email"),
			MessagingTopic: stringWithDefault(lookup, "API_PUBSUB_MESSAGING_TOPIC", "customer-messaging"),
		},
		Store: StoreConfig{
			ShippingFee:       int64WithDefault(lookup, "API_STORE_SHIPPING_FEE", defaultShippingFee),
			FreeShippingAbove: int64WithDefault(lookup, "API_STORE_FREE_SHIPPING_ABOVE", defaultFreeShippingAbove),
			LowStockThreshold: intWithDefault(lookup, "API_STORE_LOW_STOCK_THRESHOLD", defaultLowStockThreshold),
			LoyaltyRupees:     int64WithDefault(lookup, "API_STORE_LOYALTY_RUPEES_PER_POINT", defaultLoyaltyRupees),
			OrderNumberPrefix: stringWithDefault(lookup, "API_STORE_ORDER_NUMBER_PREFIX", defaultOrderNumberPrefix),
			SupportEmail:      stringWithDefault(lookup, "API_STORE_SUPPORT_EMAIL", defaultSupportEmail),
		},
		Dispatcher: DispatcherConfig{
			Workers:     intWithDefault(lookup, "API_DISPATCH_WORKERS", defaultDispatchWorkers),
			QueueSize:   intWithDefault(lookup, "API_DISPATCH_QUEUE_SIZE", defaultDispatchQueueSize),
			TaskTimeout: durationWithDefault(lookup, "API_DISPATCH_TASK_TIMEOUT", defaultDispatchTimeout),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyCleanup),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH_SIZE", defaultIdempotencyCleanupBatch),
		},
	}

	// Firestore and Pub/Sub projects default to the Firebase project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firebase.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Store.ShippingFee < 0 {
		missing = append(missing, "Store.ShippingFee")
	}
	if cfg.Store.FreeShippingAbove < 0 {
		missing = append(missing, "Store.FreeShippingAbove")
	}
	if cfg.Store.LowStockThreshold < 0 {
		missing = append(missing, "Store.LowStockThreshold")
	}
	if cfg.Store.LoyaltyRupees <= 0 {
		missing = append(missing, "Store.LoyaltyRupees")
	}
	if strings.TrimSpace(cfg.Store.OrderNumberPrefix) == "" {
		missing = append(missing, "Store.OrderNumberPrefix")
	}
	if cfg.Dispatcher.Workers <= 0 {
		missing = append(missing, "Dispatcher.Workers")
	}
	if cfg.Dispatcher.QueueSize <= 0 {
		missing = append(missing, "Dispatcher.QueueSize")
	}
	if cfg.Dispatcher.TaskTimeout <= 0 {
		missing = append(missing, "Dispatcher.TaskTimeout")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
