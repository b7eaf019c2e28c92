package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"

	minJWTSecretLength = 32
)

type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Postgres Postgres `yaml:"postgres"`
	Store    Store    `yaml:"store"`
	DynamoDB DynamoDB `yaml:"dynamodb"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	SMTP     SMTP     `yaml:"smtp"`
	Auth     Auth     `yaml:"auth"`
	Pricing  Pricing  `yaml:"pricing"`
	Notify   Notify   `yaml:"notify"`
	Orders   Orders   `yaml:"orders"`
}

type App struct {
	Name     string `yaml:"name"      env:"APP_NAME"      env-default:"restaurant-orders"`
	LogLevel string `yaml:"log_level" env:"APP_LOG_LEVEL" env-default:"info"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"             env:"HTTP_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"    env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
	AllowedOrigins  []string      `yaml:"allowed_origins"  env:"HTTP_ALLOWED_ORIGINS"  env-separator:","`
}

// Postgres holds the catalog database and, for the postgres backend, orders.
type Postgres struct {
	DSN             string        `yaml:"dsn"               env:"POSTGRES_DSN"               env-required:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"POSTGRES_MAX_OPEN_CONNS"    env-default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"POSTGRES_MAX_IDLE_CONNS"    env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"POSTGRES_MAX_CONN_LIFETIME" env-default:"30m"`
	EnsureSchema    bool          `yaml:"ensure_schema"     env:"POSTGRES_ENSURE_SCHEMA"     env-default:"true"`
}

type Store struct {
	Backend string `yaml:"backend" env:"STORE_BACKEND" env-default:"postgres"`
}

type DynamoDB struct {
	Region      string `yaml:"region"       env:"AWS_REGION"           env-default:"us-east-1"`
	Endpoint    string `yaml:"endpoint"     env:"DYNAMODB_ENDPOINT"`
	OrdersTable string `yaml:"orders_table" env:"DYNAMODB_ORDERS_TABLE" env-default:"orders"`
}

type Redis struct {
	Addr       string        `yaml:"addr"        env:"REDIS_ADDR"        env-default:"localhost:6379"`
	Enabled    bool          `yaml:"enabled"     env:"REDIS_ENABLED"     env-default:"true"`
	CatalogTTL time.Duration `yaml:"catalog_ttl" env:"REDIS_CATALOG_TTL" env-default:"5m"`
}

type Kafka struct {
	Brokers       string `yaml:"brokers"        env:"KAFKA_BROKERS"        env-default:"localhost:9092"`
	Topic         string `yaml:"topic"          env:"KAFKA_TOPIC"          env-default:"order-events"`
	ConsumerGroup string `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP" env-default:"order-notifier"`
	Enabled       bool   `yaml:"enabled"        env:"KAFKA_ENABLED"        env-default:"true"`
}

func (k Kafka) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type SMTP struct {
	Host string `yaml:"host" env:"SMTP_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"SMTP_PORT" env-default:"1025"`
	From string `yaml:"from" env:"SMTP_FROM" env-default:"noreply@example.com"`
}

type Auth struct {
	JWTSecret         string        `yaml:"jwt_secret"          env:"JWT_SECRET"          env-required:"true"`
	AccessTokenExpiry time.Duration `yaml:"access_token_expiry" env:"JWT_ACCESS_EXPIRY"   env-default:"15m"`
}

type Pricing struct {
	TaxRate     string `yaml:"tax_rate"     env:"PRICING_TAX_RATE"     env-default:"0.08"`
	DeliveryFee string `yaml:"delivery_fee" env:"PRICING_DELIVERY_FEE" env-default:"5.00"`
}

// Policy parses the configured amounts into an order.Pricing
func (p Pricing) Policy() (order.Pricing, error) {
	rate, err := decimal.NewFromString(p.TaxRate)
	if err != nil {
		return order.Pricing{}, fmt.Errorf("pricing tax rate %q: %w", p.TaxRate, err)
	}
	fee, err := decimal.NewFromString(p.DeliveryFee)
	if err != nil {
		return order.Pricing{}, fmt.Errorf("pricing delivery fee %q: %w", p.DeliveryFee, err)
	}
	if rate.IsNegative() || fee.IsNegative() {
		return order.Pricing{}, errors.New("pricing amounts must not be negative")
	}
	return order.Pricing{TaxRate: rate, DeliveryFee: fee}, nil
}

type Notify struct {
	SendTimeout time.Duration `yaml:"send_timeout" env:"NOTIFY_SEND_TIMEOUT" env-default:"2s"`
	QueueSize   int           `yaml:"queue_size"   env:"NOTIFY_QUEUE_SIZE"   env-default:"256"`
	Workers     int           `yaml:"workers"      env:"NOTIFY_WORKERS"      env-default:"4"`
}

type Orders struct {
	NumberRetries int `yaml:"number_retries" env:"ORDER_NUMBER_RETRIES" env-default:"3"`
}

// Notifier is the subset of settings the e-mail notifier binaries need.
type Notifier struct {
	App   App   `yaml:"app"`
	Kafka Kafka `yaml:"kafka"`
	SMTP  SMTP  `yaml:"smtp"`
}

// Load reads the YAML file at path when one is given and lets the
// environment override it; with no path only the environment is used.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := read(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadNotifier(path string) (*Notifier, error) {
	var cfg Notifier
	if err := read(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for main packages
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func read(path string, cfg any) error {
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return fmt.Errorf("reading config: %s: %w", path, err)
		}
		return nil
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters long", minJWTSecretLength)
	}
	switch c.Store.Backend {
	case BackendPostgres, BackendDynamoDB:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if _, err := c.Pricing.Policy(); err != nil {
		return err
	}
	if c.Notify.QueueSize < 1 || c.Notify.Workers < 1 {
		return errors.New("notify queue size and workers must be positive")
	}
	return nil
}
