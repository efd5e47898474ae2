// internal/workers/workflow/run-case/config.go
package runcase

import "time"

type Config struct {
	Timeout time.Duration
	// IncludeHistory copies the full event history into the process variables.
	IncludeHistory bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Minute,
	}
}
