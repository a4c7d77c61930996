package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// Service defines operations that record ledger events.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
	SellerTotal(ctx context.Context, sellerID int64, eventType enums.LedgerEventType) (int64, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
// SellerID 0 books the entry against the platform.
type RecordLedgerEventInput struct {
	OrderID     uuid.UUID             `json:"order_id"`
	SellerID    int64                 `json:"seller_id"`
	Type        enums.LedgerEventType `json:"type"`
	AmountCents int64                 `json:"amount_cents"`
	Currency    string                `json:"currency"`
	Reference   string                `json:"reference,omitempty"`
	Metadata    json.RawMessage       `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.SellerID < 0 {
		return nil, fmt.Errorf("seller id must not be negative")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.AmountCents < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, fmt.Errorf("currency is required")
	}

	event := &models.LedgerEvent{
		ID:          uuid.New(),
		OrderID:     input.OrderID,
		SellerID:    input.SellerID,
		Type:        input.Type,
		AmountCents: input.AmountCents,
		Currency:    currency,
		Metadata:    input.Metadata,
	}
	if ref := strings.TrimSpace(input.Reference); ref != "" {
		event.Reference = &ref
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("order id is required")
	}
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid ledger event type %q", eventType)
	}

	events, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

func (s *service) SellerTotal(ctx context.Context, sellerID int64, eventType enums.LedgerEventType) (int64, error) {
	if !eventType.IsValid() {
		return 0, fmt.Errorf("invalid ledger event type %q", eventType)
	}
	return s.repo.SumBySeller(ctx, sellerID, string(eventType))
}
