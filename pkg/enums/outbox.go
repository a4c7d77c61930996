package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateSellerAccount OutboxAggregateType = "seller_account"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateSellerAccount,
}

func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType names an event emitted through the outbox.
type OutboxEventType string

const (
	EventSettlementCompleted  OutboxEventType = "settlement_completed"
	EventSettlementFailed     OutboxEventType = "settlement_failed"
	EventSellerAccountUpdated OutboxEventType = "seller_account_updated"
	EventOrderRefunded        OutboxEventType = "order_refunded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSettlementCompleted,
	EventSettlementFailed,
	EventSellerAccountUpdated,
	EventOrderRefunded,
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// OutboxDLQErrorReason records why an outbox row stopped being retried.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonNonRetryable || r == OutboxDLQReasonMaxAttempts
}
