package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from various sources with priority order:
// 1. Environment variables
// 2. Configuration file (config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/grcplane/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("GRCPLANE")

	setDefaults(v)

	// Read configuration file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars and defaults
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets reasonable default values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "grcplane")
	v.SetDefault("database.database", "grcplane")
	v.SetDefault("database.tls", false)

	// Cache defaults (Valkey)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.ttl", 300) // 5 minutes
	v.SetDefault("cache.db", 0)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Tenant-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Cache"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 3600)

	// Integrations defaults
	v.SetDefault("integrations.slack.enabled", false)
	v.SetDefault("integrations.ms_teams.enabled", false)
	v.SetDefault("integrations.email.enabled", false)
	v.SetDefault("integrations.email.smtp_port", 587)

	// Workflow engine defaults
	v.SetDefault("workflow.endpoint", "")
	v.SetDefault("workflow.timeout", 10000)

	// Escalation defaults
	v.SetDefault("escalation.policies_path", "./configs/escalation_policies.yaml")
	v.SetDefault("escalation.default_policy", "critical")

	// Retention defaults
	v.SetDefault("retention.dismissed_alert_days", 90)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
}

// overrideWithEnvVars explicitly handles environment variable overrides
func overrideWithEnvVars(v *viper.Viper) {
	// Server configuration
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("port", p)
		}
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", logLevel)
	}

	// MySQL connection
	if dbHost := os.Getenv("MYSQL_HOST"); dbHost != "" {
		v.Set("database.host", dbHost)
	}

	if dbPort := os.Getenv("MYSQL_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			v.Set("database.port", p)
		}
	}

	if dbUser := os.Getenv("MYSQL_USER"); dbUser != "" {
		v.Set("database.user", dbUser)
	}

	if dbPassword := os.Getenv("MYSQL_PASSWORD"); dbPassword != "" {
		v.Set("database.password", dbPassword)
	}

	if dbName := os.Getenv("MYSQL_DATABASE"); dbName != "" {
		v.Set("database.database", dbName)
	}

	// Valkey cache
	if cacheAddr := os.Getenv("VALKEY_ADDR"); cacheAddr != "" {
		v.Set("cache.addr", strings.TrimSpace(cacheAddr))
	}

	if cacheTTL := os.Getenv("CACHE_TTL"); cacheTTL != "" {
		if ttl, err := strconv.Atoi(cacheTTL); err == nil {
			v.Set("cache.ttl", ttl)
		}
	}

	// Workflow engine
	if workflowEndpoint := os.Getenv("WORKFLOW_ENDPOINT"); workflowEndpoint != "" {
		v.Set("workflow.endpoint", workflowEndpoint)
	}

	// External integrations
	if slackWebhook := os.Getenv("SLACK_WEBHOOK_URL"); slackWebhook != "" {
		v.Set("integrations.slack.webhook_url", slackWebhook)
		v.Set("integrations.slack.enabled", true)
	}

	if teamsWebhook := os.Getenv("TEAMS_WEBHOOK_URL"); teamsWebhook != "" {
		v.Set("integrations.ms_teams.webhook_url", teamsWebhook)
		v.Set("integrations.ms_teams.enabled", true)
	}

	if smtpHost := os.Getenv("SMTP_HOST"); smtpHost != "" {
		v.Set("integrations.email.smtp_host", smtpHost)
		v.Set("integrations.email.enabled", true)
	}

	// Tracing
	if otlpEndpoint := os.Getenv("OTLP_ENDPOINT"); otlpEndpoint != "" {
		v.Set("tracing.otlp_endpoint", otlpEndpoint)
		v.Set("tracing.enabled", true)
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if config.Cache.Addr == "" {
		return fmt.Errorf("a Valkey cache address is required")
	}

	// Validate port range
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	// Validate environment
	validEnvironments := []string{"development", "staging", "production", "test"}
	if !contains(validEnvironments, config.Environment) {
		return fmt.Errorf("invalid environment: %s", config.Environment)
	}

	// Validate cache TTL
	if config.Cache.TTL < 1 {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}

	if config.Workflow.Timeout < 1 {
		return fmt.Errorf("workflow timeout must be at least 1ms")
	}

	if config.Retention.DismissedAlertDays < 1 {
		return fmt.Errorf("dismissed alert retention must be at least 1 day")
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
