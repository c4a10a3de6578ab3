package config

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Database     MySQLConfig        `mapstructure:"database" yaml:"database"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	CORS         CORSConfig         `mapstructure:"cors" yaml:"cors"`
	Integrations IntegrationsConfig `mapstructure:"integrations" yaml:"integrations"`
	Workflow     WorkflowConfig     `mapstructure:"workflow" yaml:"workflow"`
	Escalation   EscalationConfig   `mapstructure:"escalation" yaml:"escalation"`
	Retention    RetentionConfig    `mapstructure:"retention" yaml:"retention"`
	Tracing      TracingConfig      `mapstructure:"tracing" yaml:"tracing"`
}

// MySQLConfig describes the alert/rule/chain store connection.
type MySQLConfig struct {
	Host     string            `mapstructure:"host" yaml:"host"`
	Port     int               `mapstructure:"port" yaml:"port"`
	User     string            `mapstructure:"user" yaml:"user"`
	Password string            `mapstructure:"password" yaml:"password"`
	Database string            `mapstructure:"database" yaml:"database"`
	TLS      bool              `mapstructure:"tls" yaml:"tls"`
	Params   map[string]string `mapstructure:"params" yaml:"params"`
}

// CacheConfig handles Valkey caching configuration.
type CacheConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Password string `mapstructure:"password" yaml:"password"`
	TTL      int    `mapstructure:"ttl" yaml:"ttl"` // seconds
}

// CORSConfig handles Cross-Origin Resource Sharing for the GRCPLANE UI.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// IntegrationsConfig handles external notification integrations.
type IntegrationsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack" yaml:"slack"`
	MSTeams MSTeamsConfig `mapstructure:"ms_teams" yaml:"ms_teams"`
	Email   EmailConfig   `mapstructure:"email" yaml:"email"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Channel    string `mapstructure:"channel" yaml:"channel"`
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
}

type MSTeamsConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
}

type EmailConfig struct {
	SMTPHost    string   `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort    int      `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username    string   `mapstructure:"username" yaml:"username"`
	Password    string   `mapstructure:"password" yaml:"password"`
	FromAddress string   `mapstructure:"from_address" yaml:"from_address"`
	Recipients  []string `mapstructure:"recipients" yaml:"recipients"`
	Enabled     bool     `mapstructure:"enabled" yaml:"enabled"`
}

// WorkflowConfig points at the external workflow execution engine invoked at
// escalation time. The timeout bounds the per-chain critical section; a hung
// workflow endpoint must not stall escalation.
type WorkflowConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  int    `mapstructure:"timeout" yaml:"timeout"` // milliseconds
}

// EscalationConfig selects the default ladder attached to critical alerts.
type EscalationConfig struct {
	PoliciesPath  string `mapstructure:"policies_path" yaml:"policies_path"`
	DefaultPolicy string `mapstructure:"default_policy" yaml:"default_policy"`
}

// RetentionConfig controls the dismissed-alert cleanup sweep.
type RetentionConfig struct {
	DismissedAlertDays int `mapstructure:"dismissed_alert_days" yaml:"dismissed_alert_days"`
}

type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
}
