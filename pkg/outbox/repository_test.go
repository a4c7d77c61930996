package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extrachill/marketplace-settlement/pkg/db/dbtest"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

func TestDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	published := old.Add(time.Minute)

	insert := func(aggregate string, created time.Time, publishedAt *time.Time, attempts int) {
		t.Helper()
		require.NoError(t, repo.Insert(conn, models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventSettlementCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   aggregate,
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     created,
			PublishedAt:   publishedAt,
			AttemptCount:  attempts,
		}))
	}
	insert("old-published", old, &published, 1)
	insert("old-terminal", old, nil, 10)
	insert("old-pending", old, nil, 2)
	insert("new-published", now, &now, 1)

	deleted, err := repo.DeletePublishedBefore(context.Background(), conn, now.Add(-30*24*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	for aggregate, want := range map[string]int{"old-published": 0, "old-terminal": 0, "old-pending": 1, "new-published": 1} {
		rows, err := repo.ListByAggregate(aggregate)
		require.NoError(t, err)
		assert.Len(t, rows, want, aggregate)
	}
}
