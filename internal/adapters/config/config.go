package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"covertrack/pkg/errors"
)

// Config is the explicit runtime configuration object. It is constructed once
// in main and passed by reference into every component constructor.
type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Massive       MassiveConfig
	Resolver      ResolverConfig
	Trigger       TriggerConfig
	Picker        PickerConfig
	Promotion     PromotionConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"covertrack"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ClickHouseConfig configures the optional raw event journal. The journal is
// skipped entirely when Enabled is false.
type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"covertrack"`
}

func (c ClickHouseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MassiveConfig configures the market-data provider (REST + WebSocket).
type MassiveConfig struct {
	APIKey string `envconfig:"MASSIVE_API_KEY" required:"true"`

	RESTBase string `envconfig:"MASSIVE_REST_BASE" default:"https://api.massive.com"`
	WSURL    string `envconfig:"MASSIVE_WS_URL" default:"wss://socket.massive.com/stocks"`
	Feed     string `envconfig:"MASSIVE_WS_FEED" default:"delayed"`

	// Minimum gap between outbound REST calls, enforced process-wide to
	// respect the provider quota.
	RESTInterval time.Duration `envconfig:"MASSIVE_REST_INTERVAL" default:"13s"`

	HTTPTimeout time.Duration `envconfig:"MASSIVE_HTTP_TIMEOUT" default:"20s"`
}

type ResolverConfig struct {
	PriceMaxAge time.Duration `envconfig:"RESOLVER_PRICE_MAX_AGE" default:"15m"`
	ChainMaxAge time.Duration `envconfig:"RESOLVER_CHAIN_MAX_AGE" default:"60m"`

	// StrictQuotes rejects the bar-bootstrap chain fallback, which carries
	// no bid/ask and only an estimated mid.
	StrictQuotes bool `envconfig:"RESOLVER_STRICT_QUOTES" default:"false"`
}

type TriggerConfig struct {
	NearStrikePct float64       `envconfig:"TRIGGER_NEAR_STRIKE_PCT" default:"0.03"`
	RapidUpPct    float64       `envconfig:"TRIGGER_RAPID_UP_PCT" default:"0.05"`
	Cooldown      time.Duration `envconfig:"TRIGGER_COOLDOWN" default:"300s"`
}

// LaneConfig holds the per-lane selection parameters. The yield floors and
// classification cutoffs observed in production drifted across revisions;
// this table is the canonical one and every value is overridable.
type LaneConfig struct {
	MinYield     float64
	MaxSpreadPct float64
	DeltaLow     float64
	DeltaHigh    float64
	TargetDelta  float64
	StrikeWeight float64
}

type PickerConfig struct {
	TopN int `envconfig:"PICKER_TOP_N" default:"10"`

	// Lane classification cutoffs
	ConservativeMaxVol      float64 `envconfig:"LANE_CONSERVATIVE_MAX_VOL" default:"0.35"`
	ConservativeMinSuit     float64 `envconfig:"LANE_CONSERVATIVE_MIN_SUITABILITY" default:"0.55"`
	ConservativeMaxDrawdown float64 `envconfig:"LANE_CONSERVATIVE_MAX_DRAWDOWN" default:"0.35"`
	MidMaxVol               float64 `envconfig:"LANE_MID_MAX_VOL" default:"0.60"`
	MidMinSuit              float64 `envconfig:"LANE_MID_MIN_SUITABILITY" default:"0.35"`
	MidMaxDrawdown          float64 `envconfig:"LANE_MID_MAX_DRAWDOWN" default:"0.50"`
	FallbackMidMaxVol       float64 `envconfig:"LANE_FALLBACK_MID_MAX_VOL" default:"0.40"`

	// Per-lane selection parameters
	ConservativeMinYield  float64 `envconfig:"LANE_CONSERVATIVE_MIN_YIELD" default:"0.004"`
	MidMinYield           float64 `envconfig:"LANE_MID_MIN_YIELD" default:"0.008"`
	SpeculativeMinYield   float64 `envconfig:"LANE_SPECULATIVE_MIN_YIELD" default:"0.012"`
	ConservativeMaxSpread float64 `envconfig:"LANE_CONSERVATIVE_MAX_SPREAD" default:"0.15"`
	MidMaxSpread          float64 `envconfig:"LANE_MID_MAX_SPREAD" default:"0.20"`
	SpeculativeMaxSpread  float64 `envconfig:"LANE_SPECULATIVE_MAX_SPREAD" default:"0.25"`

	// Score weights
	YieldWeight    float64 `envconfig:"SCORE_YIELD_WEIGHT" default:"40"`
	SuitWeight     float64 `envconfig:"SCORE_SUITABILITY_WEIGHT" default:"0.3"`
	RiskWeight     float64 `envconfig:"SCORE_RISK_WEIGHT" default:"0.2"`
	RegimeWeight   float64 `envconfig:"SCORE_REGIME_WEIGHT" default:"0.1"`
	DownsideWeight float64 `envconfig:"SCORE_DOWNSIDE_WEIGHT" default:"0.5"`
}

type PromotionConfig struct {
	Seed           float64 `envconfig:"PROMOTION_SEED" default:"9300"`
	Lane           string  `envconfig:"PROMOTION_LANE" default:"conservative"`
	TopN           int     `envconfig:"PROMOTION_TOP_N" default:"10"`
	MinHistoryDays int     `envconfig:"PROMOTION_MIN_HISTORY_DAYS" default:"60"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables, trying a local .env
// file first. Missing required keys fail fast here, before any component
// starts.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigMissing, err.Error())
	}

	return &cfg, nil
}
