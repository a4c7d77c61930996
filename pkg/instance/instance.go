package instance

import (
	"os"
	"strings"
)

const fallbackID = "worker-0"

// ID names this process for lock ownership and logs. SETTLEMENT_INSTANCE_ID
// wins, then the hostname.
func ID() string {
	if id := strings.TrimSpace(os.Getenv("SETTLEMENT_INSTANCE_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
