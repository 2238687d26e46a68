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
	SAP      SAPConfig      `mapstructure:"sap"`
	Billing  BillingConfig  `mapstructure:"billing"`
	API      APIConfig      `mapstructure:"api"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds lead store configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// SAPConfig holds Service Layer connection configuration
type SAPConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	CompanyDB string        `mapstructure:"company_db"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// BillingConfig holds payment allocation configuration
type BillingConfig struct {
	DefaultCurrency string            `mapstructure:"default_currency"`
	CashAccounts    map[string]string `mapstructure:"cash_accounts"`
}

// APIConfig holds inbound API configuration
type APIConfig struct {
	Key string `mapstructure:"key"`
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

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/leads.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("sap.timeout", 30*time.Second)

	viper.SetDefault("billing.default_currency", "UZS")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	// Sensitive credentials come from the environment
	viper.BindEnv("sap.base_url", "SAP_BASE_URL")
	viper.BindEnv("sap.company_db", "SAP_COMPANY_DB")
	viper.BindEnv("sap.username", "SAP_USERNAME")
	viper.BindEnv("sap.password", "SAP_PASSWORD")
	viper.BindEnv("api.key", "API_KEY")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SAP.BaseURL == "" {
		return fmt.Errorf("sap.base_url is required")
	}
	if c.SAP.CompanyDB == "" {
		return fmt.Errorf("sap.company_db is required")
	}
	if c.SAP.Username == "" {
		return fmt.Errorf("sap.username is required")
	}
	if c.SAP.Password == "" {
		return fmt.Errorf("sap.password is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	return nil
}
