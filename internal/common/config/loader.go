// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml and applies env overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory until it finds go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from well-known env names when the YAML left them blank.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Collaborators.APIKey == "" {
		cfg.Collaborators.APIKey = os.Getenv("COLLABORATOR_API_KEY")
	}
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Notifications.Escalation.TopicARN == "" {
		cfg.Notifications.Escalation.TopicARN = os.Getenv("ESCALATION_TOPIC_ARN")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "benefit-orchestrator"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.IdentityIndex == "" {
		cfg.Database.Elasticsearch.IdentityIndex = "identities"
	}

	if cfg.Cache.LocalMaxBytes == 0 {
		cfg.Cache.LocalMaxBytes = 8 << 20
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 300000
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "benefits.case"
	}
	if cfg.Records.Source == "" {
		cfg.Records.Source = "static"
	}

	if cfg.Collaborators.Timeout == 0 {
		cfg.Collaborators.Timeout = 60000
	}
	if cfg.Collaborators.MaxRetries == 0 {
		cfg.Collaborators.MaxRetries = 2
	}
	if cfg.Collaborators.RateLimit == 0 {
		cfg.Collaborators.RateLimit = 5
	}
	if cfg.Collaborators.RateBurst == 0 {
		cfg.Collaborators.RateBurst = 10
	}
	if cfg.Collaborators.BreakerFailRatio == 0 {
		cfg.Collaborators.BreakerFailRatio = 0.6
	}
	if cfg.Collaborators.BreakerMinCalls == 0 {
		cfg.Collaborators.BreakerMinCalls = 5
	}
	if cfg.Collaborators.BreakerOpenFor == 0 {
		cfg.Collaborators.BreakerOpenFor = 30000
	}

	if cfg.Workflow.MaxSteps == 0 {
		cfg.Workflow.MaxSteps = 40
	}
	if cfg.Workflow.StageTimeout == 0 {
		cfg.Workflow.StageTimeout = 120000
	}
	if cfg.Workflow.StageRetries == 0 {
		cfg.Workflow.StageRetries = 2
	}
	if cfg.Workflow.RetryBackoff == 0 {
		cfg.Workflow.RetryBackoff = 500
	}
	if cfg.Workflow.MaxIdentityAttempts == 0 {
		cfg.Workflow.MaxIdentityAttempts = 3
	}
	if cfg.Workflow.BatchParallelism == 0 {
		cfg.Workflow.BatchParallelism = 4
	}
	if cfg.Workflow.Identity.VerifiedThreshold == 0 {
		cfg.Workflow.Identity.VerifiedThreshold = 70
	}
	if cfg.Workflow.Identity.AmbiguousFloor == 0 {
		cfg.Workflow.Identity.AmbiguousFloor = 50
	}
	if cfg.Workflow.Identity.MaxResults == 0 {
		cfg.Workflow.Identity.MaxResults = 5
	}

	if cfg.Notifications.Region == "" {
		cfg.Notifications.Region = "us-east-1"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Records.Source {
	case "static", "postgres":
	default:
		return fmt.Errorf("records.source must be static or postgres, got %q", cfg.Records.Source)
	}

	if cfg.Records.Source == "postgres" && !cfg.Database.Postgres.Enabled {
		return fmt.Errorf("records.source postgres requires database.postgres.enabled")
	}
	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required")
	}
	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}

	if cfg.Workflow.MaxSteps < 1 {
		return fmt.Errorf("workflow.max_steps must be positive")
	}
	id := cfg.Workflow.Identity
	if id.AmbiguousFloor > id.VerifiedThreshold || id.VerifiedThreshold > 100 {
		return fmt.Errorf("workflow.identity thresholds must satisfy ambiguous_floor <= verified_threshold <= 100")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
