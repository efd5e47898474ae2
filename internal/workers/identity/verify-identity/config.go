// internal/workers/identity/verify-identity/config.go
package verifyidentity

import "time"

type Config struct {
	Timeout time.Duration
	// FailUnverified throws IDENTITY_AMBIGUOUS / IDENTITY_NOT_FOUND so the
	// process can catch them on a boundary event.
	FailUnverified bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
