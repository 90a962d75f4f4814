package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// HTTP Server
	Port          string  `yaml:"port"`
	HTTPRateLimit float64 `yaml:"http_rate_limit"`
	HTTPRateBurst int     `yaml:"http_rate_burst"`
	LogLevel      string  `yaml:"log_level"`
	LogFormat     string  `yaml:"log_format"`

	// Backend selection
	DataBackend string `yaml:"data_backend"`
	DataDir     string `yaml:"data_dir"`

	// REST backend
	APIBaseURL   string        `yaml:"api_base_url"`
	APIToken     string        `yaml:"api_token"`
	APITimeout   time.Duration `yaml:"api_timeout"`
	APIRateLimit float64       `yaml:"api_rate_limit"`

	// Database
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	// AMQP
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Scheduled jobs
	ReminderCron     string `yaml:"reminder_cron"`
	ReminderLeadDays int    `yaml:"reminder_lead_days"`
	ExportCron       string `yaml:"export_cron"`

	// Google Sheets export
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleServiceAccountJSON string `yaml:"google_service_account_json"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`
	GoogleOAuthClientFile    string `yaml:"google_oauth_client_file"`
	GoogleOAuthTokenFile     string `yaml:"google_oauth_token_file"`

	// Reminder e-mail
	SMTPHost        string `yaml:"smtp_host"`
	SMTPPort        int    `yaml:"smtp_port"`
	SMTPUsername    string `yaml:"smtp_username"`
	SMTPPassword    string `yaml:"smtp_password"`
	SMTPFrom        string `yaml:"smtp_from"`
	ReminderEmailTo string `yaml:"reminder_email_to"`
	NotifyPayments  bool   `yaml:"notify_payments"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:          "8081",
		HTTPRateLimit: 20,
		HTTPRateBurst: 40,
		LogLevel:      "info",
		LogFormat:     "text",

		DataBackend: "memory",
		DataDir:     "data",

		APIBaseURL:   "http://localhost:8080/api",
		APITimeout:   10 * time.Second,
		APIRateLimit: 10,

		SQLiteDBPath: "./data/budgetwise.db",

		AMQPExchange: "budgetwise",
		AMQPQueue:    "bill_reminders",

		ReminderCron:     "0 0 8 * * *",
		ReminderLeadDays: 3,

		SMTPPort: 587,
	}
}

// Load layers configuration: built-in defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.HTTPRateLimit = getEnvFloat("HTTP_RATE_LIMIT", c.HTTPRateLimit)
	c.HTTPRateBurst = getEnvInt("HTTP_RATE_BURST", c.HTTPRateBurst)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)

	c.APIBaseURL = getEnv("API_BASE_URL", c.APIBaseURL)
	c.APIToken = getEnv("API_TOKEN", c.APIToken)
	c.APITimeout = getEnvDuration("API_TIMEOUT", c.APITimeout)
	c.APIRateLimit = getEnvFloat("API_RATE_LIMIT", c.APIRateLimit)

	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.ReminderCron = getEnv("REMINDER_CRON", c.ReminderCron)
	c.ReminderLeadDays = getEnvInt("REMINDER_LEAD_DAYS", c.ReminderLeadDays)
	c.ExportCron = getEnv("EXPORT_CRON", c.ExportCron)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)
	c.GoogleOAuthClientFile = getEnv("GOOGLE_OAUTH_CLIENT_FILE", c.GoogleOAuthClientFile)
	c.GoogleOAuthTokenFile = getEnv("GOOGLE_OAUTH_TOKEN_FILE", c.GoogleOAuthTokenFile)

	c.SMTPHost = getEnv("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = getEnvInt("SMTP_PORT", c.SMTPPort)
	c.SMTPUsername = getEnv("SMTP_USERNAME", c.SMTPUsername)
	c.SMTPPassword = getEnv("SMTP_PASSWORD", c.SMTPPassword)
	c.SMTPFrom = getEnv("SMTP_FROM", c.SMTPFrom)
	c.ReminderEmailTo = getEnv("REMINDER_EMAIL_TO", c.ReminderEmailTo)
	c.NotifyPayments = getEnvBool("NOTIFY_PAYMENTS", c.NotifyPayments)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.HTTPRateLimit <= 0 || c.HTTPRateBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid HTTP rate limit %v/%d: rate and burst must be positive", c.HTTPRateLimit, c.HTTPRateBurst))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	validBackends := []string{"memory", "rest", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "rest" {
		if parsedURL, err := url.Parse(c.APIBaseURL); err != nil || c.APIBaseURL == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.APITimeout < time.Second || c.APITimeout > 5*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be between 1 second and 5 minutes", c.APITimeout))
		}
		if c.APIRateLimit <= 0 {
			errors = append(errors, fmt.Sprintf("invalid API rate limit %v: must be positive", c.APIRateLimit))
		}
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if c.ReminderCron != "" {
		if _, err := parser.Parse(c.ReminderCron); err != nil {
			errors = append(errors, fmt.Sprintf("invalid reminder cron '%s': %v", c.ReminderCron, err))
		}
	}
	if c.ExportCron != "" {
		if _, err := parser.Parse(c.ExportCron); err != nil {
			errors = append(errors, fmt.Sprintf("invalid export cron '%s': %v", c.ExportCron, err))
		}
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when EXPORT_CRON is set")
		}
	}
	if c.ReminderLeadDays < 0 || c.ReminderLeadDays > 60 {
		errors = append(errors, fmt.Sprintf("invalid reminder lead days %d: must be between 0 and 60", c.ReminderLeadDays))
	}

	if c.GoogleSpreadsheetID != "" {
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasOAuth := c.GoogleOAuthClientFile != "" && c.GoogleOAuthTokenFile != ""
		if !hasServiceAccount && !hasOAuth {
			errors = append(errors, "Google Sheets export needs GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or both GOOGLE_OAUTH_CLIENT_FILE and GOOGLE_OAUTH_TOKEN_FILE")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SMTPHost != "" {
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
		}
		if c.SMTPFrom == "" || c.ReminderEmailTo == "" {
			errors = append(errors, "SMTP_FROM and REMINDER_EMAIL_TO are required when SMTP_HOST is set")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// EmailEnabled reports whether reminder e-mails can be sent.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != "" && c.ReminderEmailTo != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
