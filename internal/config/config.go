package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "BSA"

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Database   DatabaseConfig   `yaml:"database" envconfig:"DATABASE"`
	Auth       AuthConfig       `yaml:"auth" envconfig:"AUTH"`
	LLM        LLMConfig        `yaml:"llm" envconfig:"LLM"`
	Extraction ExtractionConfig `yaml:"extraction" envconfig:"EXTRACTION"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" envconfig:"SCHEDULER"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5000"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against BaseDir, which defaults to the working directory.
type PathsConfig struct {
	BaseDir        string `yaml:"base_dir" envconfig:"BASE_DIR"`
	CompanyDataDir string `yaml:"company_data_dir" envconfig:"COMPANY_DATA_DIR" default:"company_data"`
	SourceDataDir  string `yaml:"source_data_dir" envconfig:"SOURCE_DATA_DIR"`
	LogsDir        string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// DatabaseConfig selects the SQL driver and connection string
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" envconfig:"DRIVER" default:"sqlite"`
	DSN             string        `yaml:"dsn" envconfig:"DSN" default:"users.db"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME" default:"30m"`
}

// AuthConfig contains token signing and admin seeding configuration
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" envconfig:"JWT_SECRET" default:"your-secret-key-change-in-production"`
	TokenTTL      time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL" default:"24h"`
	AdminUsername string        `yaml:"admin_username" envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPassword string        `yaml:"admin_password" envconfig:"ADMIN_PASSWORD" default:"admin123"`
	BcryptCost    int           `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST" default:"10"`
}

// LLMConfig configures the OpenAI-compatible chat completions client.
// An empty APIKey selects the offline mock client.
type LLMConfig struct {
	BaseURL      string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.deepseek.com"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	Model        string        `yaml:"model" envconfig:"MODEL" default:"deepseek-chat"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"45s"`
	RPS          float64       `yaml:"rps" envconfig:"RPS" default:"2"`
	Burst        int           `yaml:"burst" envconfig:"BURST" default:"4"`
	PromptBudget int           `yaml:"prompt_budget" envconfig:"PROMPT_BUDGET" default:"12000"`
}

// ExtractionConfig configures the plot extraction runner
type ExtractionConfig struct {
	Root      string `yaml:"root" envconfig:"ROOT"`
	Threshold int    `yaml:"threshold" envconfig:"THRESHOLD" default:"85"`
}

// SchedulerConfig configures periodic plot regeneration
type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Spec     string `yaml:"spec" envconfig:"SPEC" default:"0 2 * * *"`
	TimeZone string `yaml:"timezone" envconfig:"TIMEZONE" default:"UTC"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from a .env file, environment variables and an
// optional YAML config file. Environment variables win over the file.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envSet reports whether BSA_<key> was set explicitly.
func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// mergeConfigs copies non-zero file values into envConfig for every field
// whose environment variable was not set explicitly.
func mergeConfigs(fileConfig, envConfig Config) Config {
	mergeString := func(key string, dst *string, src string) {
		if src != "" && !envSet(key) {
			*dst = src
		}
	}
	mergeInt := func(key string, dst *int, src int) {
		if src != 0 && !envSet(key) {
			*dst = src
		}
	}
	mergeDuration := func(key string, dst *time.Duration, src time.Duration) {
		if src != 0 && !envSet(key) {
			*dst = src
		}
	}

	mergeInt("SERVER_PORT", &envConfig.Server.Port, fileConfig.Server.Port)
	mergeDuration("SERVER_READ_TIMEOUT", &envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout)
	mergeDuration("SERVER_WRITE_TIMEOUT", &envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout)
	mergeDuration("SERVER_REQUEST_TIMEOUT", &envConfig.Server.RequestTimeout, fileConfig.Server.RequestTimeout)

	if len(fileConfig.Security.AllowedOrigins) > 0 && !envSet("SECURITY_ALLOWED_ORIGINS") {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}

	mergeString("LOGGING_LEVEL", &envConfig.Logging.Level, fileConfig.Logging.Level)
	mergeString("LOGGING_OUTPUT", &envConfig.Logging.Output, fileConfig.Logging.Output)
	mergeString("LOGGING_FILE_PATH", &envConfig.Logging.FilePath, fileConfig.Logging.FilePath)

	mergeString("PATHS_BASE_DIR", &envConfig.Paths.BaseDir, fileConfig.Paths.BaseDir)
	mergeString("PATHS_COMPANY_DATA_DIR", &envConfig.Paths.CompanyDataDir, fileConfig.Paths.CompanyDataDir)
	mergeString("PATHS_SOURCE_DATA_DIR", &envConfig.Paths.SourceDataDir, fileConfig.Paths.SourceDataDir)
	mergeString("PATHS_LOGS_DIR", &envConfig.Paths.LogsDir, fileConfig.Paths.LogsDir)

	mergeString("DATABASE_DRIVER", &envConfig.Database.Driver, fileConfig.Database.Driver)
	mergeString("DATABASE_DSN", &envConfig.Database.DSN, fileConfig.Database.DSN)

	mergeString("AUTH_JWT_SECRET", &envConfig.Auth.JWTSecret, fileConfig.Auth.JWTSecret)
	mergeDuration("AUTH_TOKEN_TTL", &envConfig.Auth.TokenTTL, fileConfig.Auth.TokenTTL)
	mergeString("AUTH_ADMIN_USERNAME", &envConfig.Auth.AdminUsername, fileConfig.Auth.AdminUsername)
	mergeString("AUTH_ADMIN_PASSWORD", &envConfig.Auth.AdminPassword, fileConfig.Auth.AdminPassword)

	mergeString("LLM_BASE_URL", &envConfig.LLM.BaseURL, fileConfig.LLM.BaseURL)
	mergeString("LLM_API_KEY", &envConfig.LLM.APIKey, fileConfig.LLM.APIKey)
	mergeString("LLM_MODEL", &envConfig.LLM.Model, fileConfig.LLM.Model)
	mergeDuration("LLM_TIMEOUT", &envConfig.LLM.Timeout, fileConfig.LLM.Timeout)
	mergeInt("LLM_PROMPT_BUDGET", &envConfig.LLM.PromptBudget, fileConfig.LLM.PromptBudget)

	mergeString("EXTRACTION_ROOT", &envConfig.Extraction.Root, fileConfig.Extraction.Root)
	mergeInt("EXTRACTION_THRESHOLD", &envConfig.Extraction.Threshold, fileConfig.Extraction.Threshold)

	if fileConfig.Scheduler.Enabled && !envSet("SCHEDULER_ENABLED") {
		envConfig.Scheduler.Enabled = true
	}
	mergeString("SCHEDULER_SPEC", &envConfig.Scheduler.Spec, fileConfig.Scheduler.Spec)
	mergeString("SCHEDULER_TIMEZONE", &envConfig.Scheduler.TimeZone, fileConfig.Scheduler.TimeZone)

	return envConfig
}

// resolvePaths turns every relative path into an absolute one under BaseDir
func (c *Config) resolvePaths() error {
	if c.Paths.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		c.Paths.BaseDir = wd
	}

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.Paths.BaseDir, p)
	}

	c.Paths.CompanyDataDir = abs(c.Paths.CompanyDataDir)
	c.Paths.SourceDataDir = abs(c.Paths.SourceDataDir)
	c.Paths.LogsDir = abs(c.Paths.LogsDir)
	c.Logging.FilePath = abs(c.Logging.FilePath)
	c.Extraction.Root = abs(c.Extraction.Root)
	if c.Database.Driver == DriverSQLite && c.Database.DSN != ":memory:" {
		c.Database.DSN = abs(c.Database.DSN)
	}
	return nil
}

// GetPaths returns the resolved directory layout for this configuration
func (c *Config) GetPaths() *Paths {
	return NewPaths(c.Paths)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	if c.Auth.JWTSecret == DevJWTSecret {
		slog.Warn("Using the development JWT secret; set BSA_AUTH_JWT_SECRET in production")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}

	if c.Extraction.Threshold <= 0 || c.Extraction.Threshold > 100 {
		return fmt.Errorf("extraction threshold must be in 1..100, got %d", c.Extraction.Threshold)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, "app.log")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5000"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			CompanyDataDir: DefaultCompanyDataDir,
			LogsDir:        DefaultLogsDir,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			DSN:             DefaultDatabaseFile,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			JWTSecret:     DevJWTSecret,
			TokenTTL:      DefaultTokenTTL,
			AdminUsername: "admin",
			AdminPassword: "admin123",
			BcryptCost:    10,
		},
		LLM: LLMConfig{
			BaseURL:      DefaultLLMBaseURL,
			Model:        DefaultLLMModel,
			Timeout:      45 * time.Second,
			RPS:          2,
			Burst:        4,
			PromptBudget: DefaultPromptBudget,
		},
		Extraction: ExtractionConfig{
			Threshold: DefaultMatchThreshold,
		},
		Scheduler: SchedulerConfig{
			Spec:     "0 2 * * *",
			TimeZone: "UTC",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
