package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Input  InputConfig  `yaml:"input" mapstructure:"input"`
	QA     QAConfig     `yaml:"qa" mapstructure:"qa"`
	Deploy DeployConfig `yaml:"deploy" mapstructure:"deploy"`

	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the run database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=none sqlite postgres"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns" validate:"gte=0"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns" validate:"gte=0"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentSeries int `yaml:"max_concurrent_series" mapstructure:"max_concurrent_series" validate:"gte=1"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxBodyMB   int      `yaml:"max_body_mb" mapstructure:"max_body_mb" validate:"gte=1"`
	// RateLimitRPS caps requests per second on /v1 routes. Zero disables it.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst" validate:"gte=1"`
}

// MonitoringConfig configures the background alert checker of the server.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url" validate:"omitempty,url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs" validate:"gte=0"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours" validate:"gte=1"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold" validate:"gte=0,lte=1"`
	ViolationThreshold   float64 `yaml:"violation_threshold" mapstructure:"violation_threshold" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// InputConfig configures how logger tables are decoded.
type InputConfig struct {
	Encoding   string `yaml:"encoding" mapstructure:"encoding"`
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter" validate:"omitempty,len=1"` // empty sniffs the header line
	TimeColumn string `yaml:"time_column" mapstructure:"time_column" validate:"required"`
}

// QAConfig configures the cleaning pipeline.
type QAConfig struct {
	Frequency     time.Duration          `yaml:"frequency" mapstructure:"frequency" validate:"gt=0"`
	LargeGapSteps int                    `yaml:"large_gap_steps" mapstructure:"large_gap_steps" validate:"gte=0"`
	GapFillLimit  int                    `yaml:"gap_fill_limit" mapstructure:"gap_fill_limit" validate:"gte=0"`
	NullJumps     bool                   `yaml:"null_jumps" mapstructure:"null_jumps"`
	Ranges        map[string]RangeConfig `yaml:"ranges" mapstructure:"ranges" validate:"dive"`
	Jump          JumpConfig             `yaml:"jump" mapstructure:"jump"`
}

// RangeConfig is an inclusive plausible range for one channel.
type RangeConfig struct {
	Min float64 `yaml:"min" mapstructure:"min"`
	Max float64 `yaml:"max" mapstructure:"max" validate:"gtefield=Min"`
}

// JumpConfig configures the rolling median/MAD jump detector.
type JumpConfig struct {
	Window        int      `yaml:"window" mapstructure:"window" validate:"gte=2"`
	NSigma        float64  `yaml:"n_sigma" mapstructure:"n_sigma" validate:"gt=0"`
	MinAbsJump    float64  `yaml:"min_abs_jump" mapstructure:"min_abs_jump" validate:"gte=0"`
	ReversalSteps int      `yaml:"reversal_steps" mapstructure:"reversal_steps" validate:"gte=1"`
	MinPeriods    int      `yaml:"min_periods" mapstructure:"min_periods" validate:"gte=1"`
	Channels      []string `yaml:"channels" mapstructure:"channels"`
}

// DeployConfig configures deployment window detection. DayInStreak has no
// default; callers must set it before detection runs.
type DeployConfig struct {
	DropThreshold     float64 `yaml:"drop_threshold" mapstructure:"drop_threshold"`
	ConsecutiveNights int     `yaml:"consecutive_nights" mapstructure:"consecutive_nights"`
	DayInStreak       int     `yaml:"day_in_streak" mapstructure:"day_in_streak"`
	BufferDays        int     `yaml:"buffer_days" mapstructure:"buffer_days"`
	AirChannel        string  `yaml:"air_channel" mapstructure:"air_channel"`
	SoilChannel       string  `yaml:"soil_channel" mapstructure:"soil_channel"`
}

// Load reads configuration from file and environment. An empty path searches
// the working directory for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("MCQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "microclimate-qa.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("batch.max_concurrent_series", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_mb", 64)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("input.encoding", "utf-8")
	v.SetDefault("input.time_column", "datetime")
	v.SetDefault("qa.frequency", "15m")
	v.SetDefault("qa.large_gap_steps", 20)
	v.SetDefault("qa.gap_fill_limit", 20)
	v.SetDefault("qa.null_jumps", true)
	v.SetDefault("qa.ranges.t1.min", -20.0)
	v.SetDefault("qa.ranges.t1.max", 30.0)
	v.SetDefault("qa.ranges.t2.min", -35.0)
	v.SetDefault("qa.ranges.t2.max", 45.0)
	v.SetDefault("qa.ranges.t3.min", -35.0)
	v.SetDefault("qa.ranges.t3.max", 40.0)
	v.SetDefault("qa.jump.window", 24)
	v.SetDefault("qa.jump.n_sigma", 5.0)
	v.SetDefault("qa.jump.min_abs_jump", 5.0)
	v.SetDefault("qa.jump.reversal_steps", 5)
	v.SetDefault("qa.jump.min_periods", 6)
	v.SetDefault("qa.jump.channels", []string{"t1", "t2", "t3"})
	v.SetDefault("deploy.drop_threshold", -5.0)
	v.SetDefault("deploy.consecutive_nights", 3)
	v.SetDefault("deploy.buffer_days", 7)
	v.SetDefault("deploy.air_channel", "t3")
	v.SetDefault("deploy.soil_channel", "t1")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Delim returns the configured delimiter, or 0 when it should be sniffed.
func (c InputConfig) Delim() rune {
	if c.Delimiter == "" {
		return 0
	}
	return []rune(c.Delimiter)[0]
}

// ValidateFor applies the extra requirements of a specific command on top of
// the tag constraints checked by Load.
func (c *Config) ValidateFor(command string) error {
	var missing []string

	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url is required for the postgres driver")
	}

	switch command {
	case "window":
		if c.Deploy.DayInStreak < 1 {
			missing = append(missing, "deploy.day_in_streak is required (1 = first day of the streak)")
		}
	case "serve":
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be positive")
		}
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}
