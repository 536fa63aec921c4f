package config

import "time"

// Application constants
const (
	AppName    = "Balance Sheet Analyzer"
	AppVersion = "1.0.0"

	DefaultPort           = 5000
	DefaultCompanyDataDir = "company_data"
	DefaultLogsDir        = "logs"
	DefaultDatabaseFile   = "users.db"
	DefaultTokenTTL       = 24 * time.Hour
	DefaultMatchThreshold = 85
	DefaultPromptBudget   = 12000

	DefaultLLMBaseURL = "https://api.deepseek.com"
	DefaultLLMModel   = "deepseek-chat"

	// DevJWTSecret is accepted but logged as unsafe.
	DevJWTSecret = "your-secret-key-change-in-production"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Well-known company files
const (
	PlotsDirName     = "plots"
	SystemPromptFile = "system_prompt.txt"
	HiddenDataFile   = "internal_data.csv"
)
