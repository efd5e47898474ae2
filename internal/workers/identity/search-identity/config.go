// internal/workers/identity/search-identity/config.go
package searchidentity

import "time"

type Config struct {
	Timeout time.Duration
	// MaxResults trims the matcher's ranking further; zero keeps it as is.
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
