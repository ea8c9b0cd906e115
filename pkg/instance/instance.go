package instance

import (
	"os"

	"github.com/angelmondragon/shopfront-backend/pkg/env"
)

// GetID identifies the running process in logs and lock ownership.
// SHOPFRONT_INSTANCE_ID wins, then the platform dyno name, then the hostname.
func GetID() string {
	if id := env.Get("SHOPFRONT_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
