// internal/workers/records/lookup-document/config.go
package lookupdocument

import "time"

type Config struct {
	Timeout time.Duration
	// FailOnMissing throws DOCUMENT_NOT_FOUND instead of completing with found=false.
	FailOnMissing bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
