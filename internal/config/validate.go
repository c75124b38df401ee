package config

import (
	"fmt"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if c.Collab.PingInterval <= 0 {
		return fmt.Errorf("collab.ping_interval must be > 0 (got %v)", c.Collab.PingInterval)
	}
	if c.Collab.SendBuffer <= 0 {
		return fmt.Errorf("collab.send_buffer must be > 0 (got %d)", c.Collab.SendBuffer)
	}
	if c.Collab.WriteTimeout <= 0 {
		return fmt.Errorf("collab.write_timeout must be > 0 (got %v)", c.Collab.WriteTimeout)
	}

	if c.Canvas.MaxPerUser <= 0 {
		return fmt.Errorf("canvas.max_per_user must be > 0 (got %d)", c.Canvas.MaxPerUser)
	}
	if c.Canvas.MaxNodes <= 0 {
		return fmt.Errorf("canvas.max_nodes must be > 0 (got %d)", c.Canvas.MaxNodes)
	}

	return nil
}
