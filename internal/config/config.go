package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`
	Scorer ScorerConfig `yaml:"scorer" mapstructure:"scorer"`
	Report ReportConfig `yaml:"report" mapstructure:"report"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// IngestConfig configures file parsing and gap filling.
type IngestConfig struct {
	Delimiter  string   `yaml:"delimiter" mapstructure:"delimiter"`
	Sheet      string   `yaml:"sheet" mapstructure:"sheet"`
	SheetIndex int      `yaml:"sheet_index" mapstructure:"sheet_index"`
	MaxRows    int      `yaml:"max_rows" mapstructure:"max_rows"`
	NATokens   []string `yaml:"na_tokens" mapstructure:"na_tokens"`
	TextFill   string   `yaml:"text_fill" mapstructure:"text_fill"`
}

// ScorerConfig configures standardization, the outlier detector, and risk tiers.
type ScorerConfig struct {
	Contamination float64 `yaml:"contamination" mapstructure:"contamination"`
	Trees         int     `yaml:"trees" mapstructure:"trees"`
	MaxSamples    int     `yaml:"max_samples" mapstructure:"max_samples"`
	Seed          int64   `yaml:"seed" mapstructure:"seed"`
	MinFeatures   int     `yaml:"min_features" mapstructure:"min_features"`

	// Tier bounds are upper-inclusive: score <= MediumThreshold is Low,
	// score <= HighThreshold is Medium, anything above is High.
	MediumThreshold float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`
	HighThreshold   float64 `yaml:"high_threshold" mapstructure:"high_threshold"`

	BaseConfidence   int `yaml:"base_confidence" mapstructure:"base_confidence"`
	ConfidencePerCol int `yaml:"confidence_per_column" mapstructure:"confidence_per_column"`
	MaxConfidence    int `yaml:"max_confidence" mapstructure:"max_confidence"`
}

// ReportConfig configures the presentation views.
type ReportConfig struct {
	HighRiskLimit int `yaml:"high_risk_limit" mapstructure:"high_risk_limit"`
	PreviewRows   int `yaml:"preview_rows" mapstructure:"preview_rows"`
}

// BatchConfig configures multi-file processing.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	RatePerSecond  float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

	return &cfg, nil
}

// Defaults returns the configuration used when no file or environment
// overrides are present.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshalling plain defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ingest.delimiter", ",")
	v.SetDefault("ingest.sheet_index", 0)
	v.SetDefault("ingest.max_rows", 0)
	v.SetDefault("ingest.na_tokens", []string{"NA", "N/A", "NaN", "nan", "null", "NULL", "None", "#N/A", "-"})
	v.SetDefault("ingest.text_fill", "Unknown")
	v.SetDefault("scorer.contamination", 0.02)
	v.SetDefault("scorer.trees", 200)
	v.SetDefault("scorer.max_samples", 256)
	v.SetDefault("scorer.seed", 42)
	v.SetDefault("scorer.min_features", 2)
	v.SetDefault("scorer.medium_threshold", 0.4)
	v.SetDefault("scorer.high_threshold", 0.7)
	v.SetDefault("scorer.base_confidence", 70)
	v.SetDefault("scorer.confidence_per_column", 5)
	v.SetDefault("scorer.max_confidence", 95)
	v.SetDefault("report.high_risk_limit", 25)
	v.SetDefault("report.preview_rows", 10)
	v.SetDefault("batch.max_concurrent_files", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.rate_per_second", 2.0)
	v.SetDefault("server.rate_burst", 5)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze", "batch", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len([]rune(c.Ingest.Delimiter)) > 1 {
		errs = append(errs, "ingest.delimiter must be a single character")
	}
	if c.Ingest.MaxRows < 0 {
		errs = append(errs, "ingest.max_rows must be >= 0")
	}

	if mode == "batch" && (c.Batch.MaxConcurrentFiles < 1 || c.Batch.MaxConcurrentFiles > 64) {
		errs = append(errs, "batch.max_concurrent_files must be between 1 and 64")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
		if c.Server.RatePerSecond <= 0 || c.Server.RateBurst <= 0 {
			errs = append(errs, "server.rate_per_second and server.rate_burst must be > 0")
		}
	}

	if c.Report.HighRiskLimit < 0 || c.Report.PreviewRows < 0 {
		errs = append(errs, fmt.Sprintf("report limits must be >= 0 (high_risk_limit=%d, preview_rows=%d)",
			c.Report.HighRiskLimit, c.Report.PreviewRows))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
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
