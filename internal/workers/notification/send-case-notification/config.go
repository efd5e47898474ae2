// internal/workers/notification/send-case-notification/config.go
package sendcasenotification

import "time"

type Config struct {
	Timeout time.Duration
	// RetryFailedSends fails the job with NOTIFICATION_SEND_FAILED so Zeebe
	// retries it; otherwise a failed send completes with status "failed".
	RetryFailedSends bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          15 * time.Second,
		RetryFailedSends: true,
	}
}
