package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
)

// Config holds all drift detection configuration
type Config struct {
	Terraform      TerraformConfig      `mapstructure:"terraform"`
	CloudResources CloudResourcesConfig `mapstructure:"cloud_resources"`
	Configuration  ConfigurationConfig  `mapstructure:"configuration"`
	Alerting       AlertingConfig       `mapstructure:"alerting"`
	Snapshots      SnapshotConfig       `mapstructure:"snapshots"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
}

// TerraformConfig configures the plan detector
type TerraformConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Directory            string `mapstructure:"directory"`
	CheckIntervalMinutes int    `mapstructure:"check_interval_minutes" validate:"min=1"`
	PlanTimeoutSeconds   int    `mapstructure:"plan_timeout_seconds" validate:"min=0"`
}

// PlanTimeout returns the configured plan timeout as a duration.
func (c TerraformConfig) PlanTimeout() time.Duration {
	return time.Duration(c.PlanTimeoutSeconds) * time.Second
}

// CloudResourcesConfig configures the resource detector
type CloudResourcesConfig struct {
	Enabled              bool     `mapstructure:"enabled"`
	ProjectID            string   `mapstructure:"project_id"`
	CheckIntervalMinutes int      `mapstructure:"check_interval_minutes" validate:"min=1"`
	RequiredTags         []string `mapstructure:"required_tags"`
	CostIncreasePct      float64  `mapstructure:"cost_increase_pct" validate:"min=0"`
}

// ConfigurationConfig configures the configuration file detector
type ConfigurationConfig struct {
	Enabled              bool     `mapstructure:"enabled"`
	Paths                []string `mapstructure:"paths"`
	CheckIntervalMinutes int      `mapstructure:"check_interval_minutes" validate:"min=1"`
}

// AlertingConfig configures outbound alerting
type AlertingConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	WebhookURL        string   `mapstructure:"webhook_url" validate:"omitempty,url"`
	EmailRecipients   []string `mapstructure:"email_recipients" validate:"dive,email"`
	SeverityThreshold string   `mapstructure:"severity_threshold"`
}

// SnapshotConfig configures per-run infrastructure snapshots
type SnapshotConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DatabaseConfig contains event store configuration
type DatabaseConfig struct {
	Driver        string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path          string `mapstructure:"path"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Name          string `mapstructure:"name"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	SSLMode       string `mapstructure:"sslmode"`
	RetentionDays int    `mapstructure:"retention_days" validate:"min=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// MetricsConfig configures the /metrics listener used in watch mode
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from an optional YAML file, .env and
// DRIFTWATCH_-prefixed environment variables, on top of the defaults.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("driftwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.driftwatch")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("DRIFTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without touching the
// filesystem or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("terraform.enabled", true)
	v.SetDefault("terraform.directory", "infra")
	v.SetDefault("terraform.check_interval_minutes", 60)
	v.SetDefault("terraform.plan_timeout_seconds", 300)

	v.SetDefault("cloud_resources.enabled", false)
	v.SetDefault("cloud_resources.project_id", "")
	v.SetDefault("cloud_resources.check_interval_minutes", 30)
	v.SetDefault("cloud_resources.required_tags", []string{"environment", "owner", "managed_by"})
	v.SetDefault("cloud_resources.cost_increase_pct", 10.0)

	v.SetDefault("configuration.enabled", true)
	v.SetDefault("configuration.paths", []string{"configs/"})
	v.SetDefault("configuration.check_interval_minutes", 15)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.webhook_url", "")
	v.SetDefault("alerting.email_recipients", []string{})
	v.SetDefault("alerting.severity_threshold", drift.SeverityHigh)

	v.SetDefault("snapshots.enabled", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/drift_detection.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "driftwatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.retention_days", 90)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Alerting.SeverityThreshold != "" && !drift.ValidSeverity(c.Alerting.SeverityThreshold) {
		return fmt.Errorf("unknown alerting severity threshold: %s", c.Alerting.SeverityThreshold)
	}

	if c.CloudResources.Enabled && c.CloudResources.ProjectID == "" {
		return fmt.Errorf("cloud_resources.project_id must be set when the resource detector is enabled")
	}

	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database.path must be set for the sqlite driver")
	}

	return nil
}
