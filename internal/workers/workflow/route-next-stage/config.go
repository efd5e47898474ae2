// internal/workers/workflow/route-next-stage/config.go
package routenextstage

import "time"

type Config struct {
	Timeout time.Duration
	// EscalateAsError throws MANUAL_ESCALATION when the step budget runs out
	// instead of completing with an escalating decision.
	EscalateAsError bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         5 * time.Second,
		EscalateAsError: true,
	}
}
