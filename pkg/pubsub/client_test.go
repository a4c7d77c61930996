package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/extrachill/marketplace-settlement/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/settlement-events", topicResourceName("p1", "settlement-events"))
	assert.Equal(t, "projects/other/topics/x", topicResourceName("p1", "projects/other/topics/x"))
	assert.Equal(t, "", topicResourceName("", "settlement-events"))
	assert.Equal(t, "", topicResourceName("p1", "  "))
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{SettlementTopic: " settlement-events ", SellerTopic: ""})
	assert.Equal(t, []string{"settlement-events"}, names)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("settlement-events"))
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}
