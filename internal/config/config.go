package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Export   ExportConfig   `mapstructure:"export"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// BillingConfig holds billing policy knobs
type BillingConfig struct {
	// GPSAccuracyLimit is the worst GPS accuracy (meters) accepted on
	// submission when a fix is supplied.
	GPSAccuracyLimit float64 `mapstructure:"gps_accuracy_limit"`

	// DefaultDueDays is the payment window applied when a submission
	// carries no explicit due date.
	DefaultDueDays int `mapstructure:"default_due_days"`
}

// ExportConfig holds the ERP-side identifiers stamped into exports
type ExportConfig struct {
	BusinessUnit       string `mapstructure:"business_unit"`
	VendorID           string `mapstructure:"vendor_id"`
	Currency           string `mapstructure:"currency"`
	Source             string `mapstructure:"source"`
	ContractorCategory string `mapstructure:"contractor_category"`
}

// LarkConfig holds Lark notification configuration. Notifications are
// optional; an empty app id disables them.
type LarkConfig struct {
	AppID      string        `mapstructure:"app_id"`
	AppSecret  string        `mapstructure:"app_secret"`
	ChatID     string        `mapstructure:"chat_id"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/fieldclaims.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("billing.gps_accuracy_limit", 50.0)
	viper.SetDefault("billing.default_due_days", 30)

	viper.SetDefault("export.currency", "USD")
	viper.SetDefault("export.source", "FIELDCLAIMS")

	viper.SetDefault("lark.api_timeout", 30*time.Second)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("lark.chat_id", "LARK_CHAT_ID")
	viper.BindEnv("export.vendor_id", "ERP_VENDOR_ID")
	viper.BindEnv("export.business_unit", "ERP_BUSINESS_UNIT")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Billing.GPSAccuracyLimit <= 0 {
		return fmt.Errorf("billing.gps_accuracy_limit must be positive")
	}
	if c.Billing.DefaultDueDays <= 0 {
		return fmt.Errorf("billing.default_due_days must be positive")
	}

	// ERP identifiers must be present before anything can be exported
	if c.Export.BusinessUnit == "" {
		return fmt.Errorf("export.business_unit is required")
	}
	if c.Export.VendorID == "" {
		return fmt.Errorf("export.vendor_id is required")
	}

	// Lark is optional, but a configured app needs its secret
	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}

	return nil
}
