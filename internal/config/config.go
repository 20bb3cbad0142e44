package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"viaggi/internal/keypad"
	"viaggi/internal/log"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Memory backend seed files
	DataDirectory string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Entry sessions
	SessionTTL time.Duration
	SessionMax int

	// Keypad
	KeypadDecimalSeparator string
	KeypadDisplayPrecision int
	KeypadDivisionByZero   string

	// Logging
	LogLevel string

	// OpenTelemetry export
	TracingEnabled       bool
	MetricsExportEnabled bool
	OTLPEndpoint         string
	ServiceName          string

	// Telegram bot
	TelegramToken   string
	TelegramTimeout int
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "sqlite"),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/viaggi.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "viaggi"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_committed"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionMax: getEnvInt("SESSION_MAX", 10000),

		KeypadDecimalSeparator: getEnv("KEYPAD_DECIMAL_SEPARATOR", ","),
		KeypadDisplayPrecision: getEnvInt("KEYPAD_DISPLAY_PRECISION", 2),
		KeypadDivisionByZero:   getEnv("KEYPAD_DIVISION_BY_ZERO", "zero"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		TracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", false),
		MetricsExportEnabled: getEnvBool("OTEL_METRICS_ENABLED", false),
		OTLPEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		ServiceName:          getEnv("OTEL_SERVICE_NAME", "viaggi"),

		TelegramToken:   getEnv("TELEGRAM_TOKEN", ""),
		TelegramTimeout: getEnvInt("TELEGRAM_TIMEOUT", 60),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// AMQP is optional; an empty URL disables publishing
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	// Validate sessions
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid session limit %d: must be at least 1", c.SessionMax))
	}

	// Validate keypad
	if c.KeypadDecimalSeparator != "," && c.KeypadDecimalSeparator != "." {
		errors = append(errors, fmt.Sprintf("invalid decimal separator '%s': must be ',' or '.'", c.KeypadDecimalSeparator))
	}
	if c.KeypadDisplayPrecision < keypad.PrecisionExact || c.KeypadDisplayPrecision > 8 {
		errors = append(errors, fmt.Sprintf("invalid display precision %d: must be between -1 and 8", c.KeypadDisplayPrecision))
	}
	if _, err := parseDivisionPolicy(c.KeypadDivisionByZero); err != nil {
		errors = append(errors, err.Error())
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if (c.TracingEnabled || c.MetricsExportEnabled) && c.OTLPEndpoint == "" {
		errors = append(errors, "OTLP endpoint cannot be empty when tracing or metrics export is enabled")
	}

	if c.TelegramTimeout < 1 {
		errors = append(errors, fmt.Sprintf("invalid telegram timeout %d: must be at least 1 second", c.TelegramTimeout))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// KeypadOptions builds the engine options from the KEYPAD_* settings.
func (c *Config) KeypadOptions() (keypad.Options, error) {
	policy, err := parseDivisionPolicy(c.KeypadDivisionByZero)
	if err != nil {
		return keypad.Options{}, err
	}
	sep := []rune(c.KeypadDecimalSeparator)
	if len(sep) != 1 {
		return keypad.Options{}, keypad.ErrInvalidSeparator
	}
	return keypad.Options{
		Separator: sep[0],
		Precision: c.KeypadDisplayPrecision,
		Division:  policy,
	}, nil
}

func parseDivisionPolicy(s string) (keypad.DivisionPolicy, error) {
	switch strings.ToLower(s) {
	case "", "zero":
		return keypad.DivideByZeroYieldsZero, nil
	case "error":
		return keypad.DivideByZeroFails, nil
	default:
		return 0, fmt.Errorf("invalid division by zero policy '%s': must be 'zero' or 'error'", s)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
