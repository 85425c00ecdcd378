package submitapplication

import (
	"fmt"
	"time"

	"cashflow-loans/internal/common/config"
)

type Config struct {
	// Timeout bounds one submission including the CRM call and the fallback write.
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 45 * time.Second}
}

// ConfigFrom reads the "submit-application" worker section.
func ConfigFrom(appConfig *config.Config) *Config {
	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if w := config.GetWorkerConfig(appConfig, ConfigKey); w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
