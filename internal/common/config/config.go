// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Cache         CacheConfig             `mapstructure:"cache"`
	NATS          NATSConfig              `mapstructure:"nats"`
	Records       RecordsConfig           `mapstructure:"records"`
	Collaborators CollaboratorsConfig     `mapstructure:"collaborators"`
	Workflow      WorkflowConfig          `mapstructure:"workflow"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	IdentityIndex string   `mapstructure:"identity_index"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig sizes the in-process tier that sits in front of Redis.
type CacheConfig struct {
	LocalMaxBytes int64 `mapstructure:"local_max_bytes"`
	TTL           int   `mapstructure:"ttl"` // milliseconds
}

type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// RecordsConfig selects where case and identity reference data come from.
type RecordsConfig struct {
	Source   string `mapstructure:"source"` // "static" or "postgres"
	SeedPath string `mapstructure:"seed_path"`
}

// CollaboratorsConfig describes the HTTP boundary of the opaque stage collaborators.
type CollaboratorsConfig struct {
	BaseURL          string  `mapstructure:"base_url"`
	APIKey           string  `mapstructure:"api_key"`
	Timeout          int     `mapstructure:"timeout"` // milliseconds
	MaxRetries       int     `mapstructure:"max_retries"`
	RateLimit        float64 `mapstructure:"rate_limit"` // requests per second
	RateBurst        int     `mapstructure:"rate_burst"`
	BreakerFailRatio float64 `mapstructure:"breaker_fail_ratio"`
	BreakerMinCalls  uint32  `mapstructure:"breaker_min_calls"`
	BreakerOpenFor   int     `mapstructure:"breaker_open_for"` // milliseconds
}

// WorkflowConfig bounds a single case run.
type WorkflowConfig struct {
	MaxSteps            int            `mapstructure:"max_steps"`
	StageTimeout        int            `mapstructure:"stage_timeout"` // milliseconds
	StageRetries        int            `mapstructure:"stage_retries"`
	RetryBackoff        int            `mapstructure:"retry_backoff"` // milliseconds
	MaxIdentityAttempts int            `mapstructure:"max_identity_attempts"`
	BatchParallelism    int            `mapstructure:"batch_parallelism"`
	Identity            IdentityConfig `mapstructure:"identity"`
}

type IdentityConfig struct {
	VerifiedThreshold int `mapstructure:"verified_threshold"`
	AmbiguousFloor    int `mapstructure:"ambiguous_floor"`
	MaxResults        int `mapstructure:"max_results"`
}

// NotificationConfig holds settings for outcome emails and escalation alerts.
type NotificationConfig struct {
	Region string `mapstructure:"region"`
	Email  struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	Escalation struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"escalation"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}
