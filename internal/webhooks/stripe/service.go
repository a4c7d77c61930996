package stripewebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/internal/ledger"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/internal/sellers"
	"github.com/extrachill/marketplace-settlement/internal/settlement"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/metrics"
	"github.com/extrachill/marketplace-settlement/pkg/money"
	"github.com/extrachill/marketplace-settlement/pkg/outbox"
	"github.com/extrachill/marketplace-settlement/pkg/outbox/payloads"
)

// AccountUpdater applies gateway capability flags to a cached account.
type AccountUpdater interface {
	UpdateStatusByAccountID(ctx context.Context, stripeAccountID string, flags sellers.AccountFlags) (bool, error)
}

// Settler runs settlement for a paid order.
type Settler interface {
	Settle(ctx context.Context, orderID uuid.UUID, captureRef string) (*settlement.Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Orders    orders.Service
	OrderRepo orders.Repository
	Accounts  AccountUpdater
	// Settler may be nil; paid orders are then left for the admin trigger.
	Settler Settler
	Ledger  ledger.Service
	Outbox  outbox.Emitter
	Tx      txRunner
	Metrics *metrics.SettlementMetrics
	Logger  *logger.Logger
}

// Service reconciles local state with gateway events.
type Service struct {
	orders    orders.Service
	orderRepo orders.Repository
	accounts  AccountUpdater
	settler   Settler
	ledger    ledger.Service
	outbox    outbox.Emitter
	tx        txRunner
	metrics   *metrics.SettlementMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	case params.OrderRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository required")
	case params.Accounts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account updater required")
	case params.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:    params.Orders,
		orderRepo: params.OrderRepo,
		accounts:  params.Accounts,
		settler:   params.Settler,
		ledger:    params.Ledger,
		outbox:    params.Outbox,
		tx:        params.Tx,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// HandleEvent decodes and applies one verified gateway event. Events that
// need no action, and signed payloads that cannot be decoded, are
// acknowledged with a nil error so the gateway stops redelivering them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	decoded, err := Decode(event)
	if err != nil {
		if event == nil {
			return err
		}
		s.metrics.IncWebhook(string(event.Type), "invalid")
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"stripe_event_id":   event.ID,
			"stripe_event_type": string(event.Type),
			"reason":            err.Error(),
		}), "webhooks.stripe.undecodable")
		return nil
	}
	ctx = s.logg.WithEvent(ctx, decoded.EventID(), decoded.Kind())

	err = s.Apply(ctx, decoded)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.IncWebhook(decoded.Kind(), outcome)
	return err
}

// Apply routes a decoded event to its handler.
func (s *Service) Apply(ctx context.Context, event Event) error {
	switch e := event.(type) {
	case AccountUpdated:
		return s.accountUpdated(ctx, e)
	case PaymentSucceeded:
		return s.paymentSucceeded(ctx, e)
	case PaymentFailed:
		return s.paymentFailed(ctx, e)
	case ChargeRefunded:
		return s.chargeRefunded(ctx, e)
	case Unknown:
		s.logg.Info(ctx, "webhooks.stripe.unhandled")
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unsupported event %T", event))
	}
}

func (s *Service) accountUpdated(ctx context.Context, e AccountUpdated) error {
	found, err := s.accounts.UpdateStatusByAccountID(ctx, e.AccountID, e.Flags)
	if err != nil {
		return err
	}
	if !found {
		s.logg.Warn(s.logg.WithField(ctx, "stripe_account_id", e.AccountID), "webhooks.stripe.account_unknown")
	}
	return nil
}

func (s *Service) paymentSucceeded(ctx context.Context, e PaymentSucceeded) error {
	if e.OrderID == uuid.Nil {
		s.logg.Info(ctx, "webhooks.stripe.payment_without_order")
		return nil
	}
	ctx = s.logg.WithOrderID(ctx, e.OrderID.String())
	if ok, err := s.orderExists(ctx, e.OrderID); err != nil || !ok {
		return err
	}

	note := fmt.Sprintf("Stripe payment successful. PaymentIntent: %s.", e.PaymentIntentID)
	if _, err := s.orders.MarkProcessing(ctx, e.OrderID, e.PaymentIntentID, note); err != nil {
		return err
	}
	if s.settler == nil {
		return nil
	}

	// A redelivery finds the order already processing; settlement is still
	// attempted while the order is unsettled.
	order, err := s.orders.Get(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if order.Status != enums.OrderStatusProcessing || order.SettlementState != enums.SettlementStateUnsettled {
		return nil
	}
	res, err := s.settler.Settle(ctx, e.OrderID, e.ChargeID)
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "settlement_state", res.State), "webhooks.stripe.settlement_ran")
	return nil
}

func (s *Service) paymentFailed(ctx context.Context, e PaymentFailed) error {
	if e.OrderID == uuid.Nil {
		s.logg.Info(ctx, "webhooks.stripe.payment_without_order")
		return nil
	}
	ctx = s.logg.WithOrderID(ctx, e.OrderID.String())
	if ok, err := s.orderExists(ctx, e.OrderID); err != nil || !ok {
		return err
	}

	reason := strings.TrimSpace(e.Message)
	if e.PaymentIntentID != "" {
		if reason == "" {
			reason = "unknown error"
		}
		reason = fmt.Sprintf("%s (PaymentIntent: %s)", reason, e.PaymentIntentID)
	}
	moved, err := s.orders.MarkFailed(ctx, e.OrderID, reason)
	if err != nil {
		return err
	}
	if !moved {
		s.logg.Info(ctx, "webhooks.stripe.payment_failed_ignored")
	}
	return nil
}

func (s *Service) chargeRefunded(ctx context.Context, e ChargeRefunded) error {
	if e.PaymentIntentID == "" {
		s.logg.Info(ctx, "webhooks.stripe.refund_without_intent")
		return nil
	}
	order, err := s.orders.FindByPaymentRef(ctx, e.PaymentIntentID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			s.logg.Info(s.logg.WithField(ctx, "payment_intent_id", e.PaymentIntentID), "webhooks.stripe.refund_order_unknown")
			return nil
		}
		return err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	currency := e.Currency
	if currency == "" {
		currency = order.Currency
	}
	note := fmt.Sprintf("Stripe refund processed: %s %s. Charge: %s",
		money.FormatCents(e.AmountRefundedCents), strings.ToUpper(currency), e.ChargeID)

	var delta int64
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerTx := s.ledger.WithTx(tx)
		booked, err := refundedSoFar(ctx, ledgerTx, order.ID)
		if err != nil {
			return err
		}
		// Nothing new to book: a redelivery of an amount already recorded.
		if delta = e.AmountRefundedCents - booked; delta <= 0 {
			return nil
		}
		if _, err := ledgerTx.RecordEvent(ctx, ledger.RecordLedgerEventInput{
			OrderID:     order.ID,
			Type:        enums.LedgerEventTypeRefund,
			AmountCents: delta,
			Currency:    currency,
			Reference:   e.ChargeID,
		}); err != nil {
			return err
		}
		if err := s.orderRepo.WithTx(tx).AddNote(ctx, &models.OrderNote{OrderID: order.ID, Body: note}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID.String(),
			Actor:         &outbox.ActorRef{Source: "stripe_webhook"},
			Data: payloads.OrderRefundedEvent{
				OrderID:       order.ID,
				ChargeID:      e.ChargeID,
				AmountCents:   e.AmountRefundedCents,
				Currency:      currency,
				FullyRefunded: e.FullyRefunded,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record refund")
	}
	if delta <= 0 {
		s.logg.Info(s.logg.WithField(ctx, "amount_refunded_cents", e.AmountRefundedCents), "webhooks.stripe.refund_already_booked")
		return nil
	}
	s.logg.Info(s.logg.WithField(ctx, "amount_refunded_cents", e.AmountRefundedCents), "webhooks.stripe.refund_recorded")
	return nil
}

func (s *Service) orderExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.orders.Get(ctx, id); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			s.logg.Info(ctx, "webhooks.stripe.order_unknown")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// refundedSoFar sums refunds already booked for an order. Charge events
// carry the cumulative refunded amount, so only the difference is booked.
func refundedSoFar(ctx context.Context, svc ledger.Service, orderID uuid.UUID) (int64, error) {
	events, err := svc.ListForOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, ev := range events {
		if ev.Type == enums.LedgerEventTypeRefund {
			total += ev.AmountCents
		}
	}
	return total, nil
}
