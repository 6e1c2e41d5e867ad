// internal/workers/reporting/notify-result/config.go
package notifyresult

import (
	"fmt"
	"time"
)

type Config struct {
	EmailEnabled  bool
	SMSEnabled    bool
	FromEmail     string
	Recipients    []string
	TopicARN      string
	AWSRegion     string
	MaxJobsActive int
	Timeout       time.Duration
}

// DefaultConfig has every channel off; worker-manager switches them on from
// the notifications config section.
func DefaultConfig() *Config {
	return &Config{
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.EmailEnabled && c.FromEmail == "" {
		return fmt.Errorf("from_email is required when email is enabled")
	}
	if c.SMSEnabled && c.TopicARN == "" {
		return fmt.Errorf("topic_arn is required when sms is enabled")
	}
	return nil
}
