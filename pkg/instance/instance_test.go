package instance

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv("SETTLEMENT_INSTANCE_ID", " cron-a ")
	assert.Equal(t, "cron-a", ID())
}

func TestIDFallsBackToHostname(t *testing.T) {
	t.Setenv("SETTLEMENT_INSTANCE_ID", "")
	host, err := os.Hostname()
	if err != nil || host == "" {
		assert.Equal(t, fallbackID, ID())
		return
	}
	assert.Equal(t, host, ID())
}
