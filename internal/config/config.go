package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

// Event sinks selectable through EVENT_SINK.
const (
	SinkMemory = "memory"
	SinkNATS   = "nats"
	SinkKafka  = "kafka"
	SinkNone   = "none"
)

// Config is the process configuration. It is loaded once at startup and
// handed to constructors; business code never reads the environment.
type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string
	LogFile     string

	PayPal PayPal

	StoreCurrency   string
	DefaultAmount   decimal.Decimal
	UpstreamTimeout time.Duration

	CORSAllowedOrigins []string

	EventSink         string
	NATSURL           string
	NATSSubjectPrefix string
	KafkaBrokers      []string
	KafkaTopic        string

	OTLPEndpoint string
}

// PayPal holds the REST API credentials and the environment they belong to.
type PayPal struct {
	Credentials payment.Credentials
	Environment payment.Environment
	// BaseURL overrides the URL derived from Environment.
	BaseURL string
}

// APIBase returns the REST API base URL for the configured environment.
func (p PayPal) APIBase() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	return p.Environment.BaseURL()
}

// Default returns the configuration used when no environment variable is set.
func Default() *Config {
	return &Config{
		ServiceName: "minishop-checkout",
		Env:         "dev",
		HTTPAddr:    ":4000",
		PayPal: PayPal{
			Environment: payment.Sandbox,
		},
		StoreCurrency:      "EUR",
		DefaultAmount:      decimal.RequireFromString("19.99"),
		UpstreamTimeout:    15 * time.Second,
		CORSAllowedOrigins: []string{"*"},
		EventSink:          SinkMemory,
		NATSSubjectPrefix:  "minishop",
		KafkaTopic:         "minishop.order.captured",
	}
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the configuration through lookup, which has the signature of os.LookupEnv.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg.ServiceName = get("SERVICE_NAME", cfg.ServiceName)
	cfg.Env = get("ENV", cfg.Env)
	cfg.HTTPAddr = get("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogFile = get("LOG_FILE", "")

	cfg.PayPal.Credentials = payment.Credentials{
		ClientID: get("PAYPAL_CLIENT_ID", ""),
		Secret:   get("PAYPAL_SECRET", ""),
	}
	cfg.PayPal.Environment = payment.ParseEnvironment(get("PAYPAL_MODE", ""))
	cfg.PayPal.BaseURL = get("PAYPAL_BASE_URL", "")

	cfg.StoreCurrency = strings.ToUpper(get("STORE_CURRENCY", cfg.StoreCurrency))

	var errs []error
	if v := get("DEFAULT_AMOUNT", ""); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DEFAULT_AMOUNT: %w", err))
		} else {
			cfg.DefaultAmount = amount
		}
	}
	if v := get("UPSTREAM_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("UPSTREAM_TIMEOUT: %w", err))
		} else {
			cfg.UpstreamTimeout = d
		}
	}

	if v := get("CORS_ALLOWED_ORIGINS", ""); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	cfg.EventSink = strings.ToLower(get("EVENT_SINK", cfg.EventSink))
	cfg.NATSURL = get("NATS_URL", "")
	cfg.NATSSubjectPrefix = get("NATS_SUBJECT_PREFIX", cfg.NATSSubjectPrefix)
	cfg.KafkaBrokers = splitList(get("KAFKA_BROKERS", ""))
	cfg.KafkaTopic = get("KAFKA_TOPIC", cfg.KafkaTopic)

	cfg.OTLPEndpoint = get("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate reports every setting that prevents the server from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.PayPal.Credentials.ClientID == "" {
		errs = append(errs, errors.New("PAYPAL_CLIENT_ID is required"))
	}
	if c.PayPal.Credentials.Secret == "" {
		errs = append(errs, errors.New("PAYPAL_SECRET is required"))
	}
	if len(c.StoreCurrency) != 3 {
		errs = append(errs, fmt.Errorf("STORE_CURRENCY %q is not an ISO 4217 code", c.StoreCurrency))
	}
	if !c.DefaultAmount.IsPositive() {
		errs = append(errs, errors.New("DEFAULT_AMOUNT must be greater than zero"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	switch c.EventSink {
	case SinkMemory, SinkNone:
	case SinkNATS:
		if c.NATSURL == "" {
			errs = append(errs, errors.New("NATS_URL is required for the nats event sink"))
		}
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka event sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("EVENT_SINK %q is not one of memory, nats, kafka, none", c.EventSink))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
