package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/pkg/db/dbtest"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
)

func TestEmitWritesEnvelopeInTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}))
	orderID := uuid.NewString()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventSettlementCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{Source: "settlement"},
			Data:          map[string]any{"transfer_count": 2},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListByAggregate(orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventSettlementCompleted, rows[0].EventType)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.JSONEq(t, `{"transfer_count":2}`, string(envelope.Data))
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "settlement", envelope.Actor.Source)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	orderID := uuid.NewString()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventSettlementFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          map[string]any{},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	rows, err := repo.ListByAggregate(orderID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitValidation(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
	assert.Error(t, svc.Emit(context.Background(), &gorm.DB{}, DomainEvent{EventType: "bogus", AggregateID: "1"}))
	assert.Error(t, svc.Emit(context.Background(), &gorm.DB{}, DomainEvent{EventType: enums.EventOrderRefunded}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	first := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderRefunded, AggregateType: enums.AggregateOrder, AggregateID: "a", Payload: json.RawMessage(`{}`)}
	second := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderRefunded, AggregateType: enums.AggregateOrder, AggregateID: "b", Payload: json.RawMessage(`{}`)}
	third := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderRefunded, AggregateType: enums.AggregateOrder, AggregateID: "c", Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Insert(conn, first))
	require.NoError(t, repo.Insert(conn, second))
	require.NoError(t, repo.Insert(conn, third))

	require.NoError(t, repo.MarkPublishedTx(conn, first.ID))
	require.NoError(t, repo.MarkFailedTx(conn, second.ID, errors.New("transient")))
	require.NoError(t, repo.MarkTerminalTx(conn, third.ID, errors.New("bad payload"), 3))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "transient", *rows[0].LastError)
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)

	long := make([]byte, maxDLQErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventSettlementCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "order",
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}))

	var entry models.OutboxDLQ
	require.NoError(t, conn.Where("event_id = ?", eventID).First(&entry).Error)
	require.NotNil(t, entry.ErrorMessage)
	assert.Len(t, *entry.ErrorMessage, maxDLQErrorLen)
}
