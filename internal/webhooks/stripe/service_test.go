package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/extrachill/marketplace-settlement/internal/ledger"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/internal/sellers"
	"github.com/extrachill/marketplace-settlement/internal/settlement"
	"github.com/extrachill/marketplace-settlement/pkg/db"
	"github.com/extrachill/marketplace-settlement/pkg/db/dbtest"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/outbox"
)

type fakeAccounts struct {
	known   map[string]bool
	updates map[string]sellers.AccountFlags
	err     error
}

func (f *fakeAccounts) UpdateStatusByAccountID(_ context.Context, id string, flags sellers.AccountFlags) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if !f.known[id] {
		return false, nil
	}
	f.updates[id] = flags
	return true, nil
}

type settleCall struct {
	orderID    uuid.UUID
	captureRef string
}

type fakeSettler struct {
	calls []settleCall
	err   error
}

func (f *fakeSettler) Settle(_ context.Context, orderID uuid.UUID, captureRef string) (*settlement.Result, error) {
	f.calls = append(f.calls, settleCall{orderID: orderID, captureRef: captureRef})
	if f.err != nil {
		return nil, f.err
	}
	return &settlement.Result{OrderID: orderID, State: enums.SettlementStateSettled}, nil
}

type noProducts struct{}

func (noProducts) Products(context.Context, []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return map[uuid.UUID]models.Product{}, nil
}

type noSellers struct{}

func (noSellers) AccountsFor(context.Context, []int64) (map[int64]*models.SellerAccount, error) {
	return map[int64]*models.SellerAccount{}, nil
}

func (noSellers) CanReceivePayments(context.Context, int64) (bool, error) { return false, nil }

type harness struct {
	svc      *Service
	repo     orders.Repository
	ledger   ledger.Service
	outbox   *outbox.Repository
	accounts *fakeAccounts
	settler  *fakeSettler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
	tx := db.NewFromGorm(conn)
	repo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repository: repo,
		Products:   noProducts{},
		Sellers:    noSellers{},
		Tx:         tx,
		Logger:     logg,
	})
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)

	h := &harness{
		repo:     repo,
		ledger:   ledgerSvc,
		outbox:   outbox.NewRepository(conn),
		accounts: &fakeAccounts{known: map[string]bool{}, updates: map[string]sellers.AccountFlags{}},
		settler:  &fakeSettler{},
	}
	h.svc, err = NewService(ServiceParams{
		Orders:    orderSvc,
		OrderRepo: repo,
		Accounts:  h.accounts,
		Settler:   h.settler,
		Ledger:    ledgerSvc,
		Outbox:    outbox.NewService(h.outbox, logg),
		Tx:        tx,
		Logger:    logg,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) placeOrder(t *testing.T, status enums.OrderStatus, paymentRef string) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:              uuid.New(),
		Status:          status,
		CustomerEmail:   "fan@example.com",
		Currency:        "usd",
		TotalCents:      4500,
		SettlementState: enums.SettlementStateUnsettled,
	}
	if paymentRef != "" {
		order.PaymentRef = &paymentRef
	}
	require.NoError(t, h.repo.CreateOrder(context.Background(), order))
	return order
}

func (h *harness) notes(t *testing.T, id uuid.UUID) []string {
	t.Helper()
	rows, err := h.repo.ListNotes(context.Background(), id)
	require.NoError(t, err)
	var out []string
	for _, n := range rows {
		out = append(out, n.Body)
	}
	return out
}

func stripeEvent(t *testing.T, id string, typ stripe.EventType, object any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return &stripe.Event{ID: id, Type: typ, Data: &stripe.EventData{Raw: raw}}
}

func paymentIntent(orderID uuid.UUID, extra map[string]any) map[string]any {
	obj := map[string]any{
		"id":            "pi_123",
		"object":        "payment_intent",
		"metadata":      map[string]string{"order_id": orderID.String()},
		"latest_charge": "ch_123",
	}
	for k, v := range extra {
		obj[k] = v
	}
	return obj
}

func TestDecodeBuildsTypedEvents(t *testing.T) {
	orderID := uuid.New()

	got, err := Decode(stripeEvent(t, "evt_1", stripe.EventTypeAccountUpdated, map[string]any{
		"id": "acct_1", "charges_enabled": true, "payouts_enabled": false, "details_submitted": true,
	}))
	require.NoError(t, err)
	account, ok := got.(AccountUpdated)
	require.True(t, ok)
	assert.Equal(t, "acct_1", account.AccountID)
	assert.Equal(t, enums.AccountStatusRestricted, account.Flags.Status())

	got, err = Decode(stripeEvent(t, "evt_2", stripe.EventTypePaymentIntentSucceeded, paymentIntent(orderID, nil)))
	require.NoError(t, err)
	assert.Equal(t, PaymentSucceeded{ID: "evt_2", PaymentIntentID: "pi_123", OrderID: orderID, ChargeID: "ch_123"}, got)

	got, err = Decode(stripeEvent(t, "evt_3", stripe.EventTypePaymentIntentPaymentFailed, paymentIntent(uuid.Nil, map[string]any{
		"metadata":           map[string]string{"order_id": "not-a-uuid"},
		"last_payment_error": map[string]any{"message": "Your card was declined."},
	})))
	require.NoError(t, err)
	failed := got.(PaymentFailed)
	assert.Equal(t, uuid.Nil, failed.OrderID)
	assert.Equal(t, "Your card was declined.", failed.Message)

	got, err = Decode(stripeEvent(t, "evt_4", stripe.EventTypeChargeRefunded, map[string]any{
		"id": "ch_9", "amount": 4500, "amount_refunded": 1500, "currency": "usd", "refunded": false, "payment_intent": "pi_9",
	}))
	require.NoError(t, err)
	assert.Equal(t, ChargeRefunded{
		ID: "evt_4", ChargeID: "ch_9", PaymentIntentID: "pi_9",
		AmountCents: 4500, AmountRefundedCents: 1500, Currency: "usd",
	}, got)

	got, err = Decode(stripeEvent(t, "evt_5", stripe.EventType("customer.created"), map[string]any{"id": "cus_1"}))
	require.NoError(t, err)
	assert.Equal(t, Unknown{ID: "evt_5", Type: "customer.created"}, got)

	_, err = Decode(&stripe.Event{ID: "evt_6", Type: stripe.EventTypeChargeRefunded, Data: &stripe.EventData{Raw: []byte("{")}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestAccountUpdatedAppliesFlags(t *testing.T) {
	h := newHarness(t)
	h.accounts.known["acct_1"] = true
	event := stripeEvent(t, "evt_1", stripe.EventTypeAccountUpdated, map[string]any{
		"id": "acct_1", "charges_enabled": true, "payouts_enabled": true, "details_submitted": true,
	})

	require.NoError(t, h.svc.HandleEvent(context.Background(), event))
	assert.Equal(t, enums.AccountStatusActive, h.accounts.updates["acct_1"].Status())

	unknown := stripeEvent(t, "evt_2", stripe.EventTypeAccountUpdated, map[string]any{"id": "acct_other"})
	assert.NoError(t, h.svc.HandleEvent(context.Background(), unknown))

	h.accounts.err = errors.New("db down")
	assert.Error(t, h.svc.HandleEvent(context.Background(), event))
}

func TestPaymentSucceededIsAppliedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.placeOrder(t, enums.OrderStatusPending, "")
	event := stripeEvent(t, "evt_1", stripe.EventTypePaymentIntentSucceeded, paymentIntent(order.ID, nil))

	require.NoError(t, h.svc.HandleEvent(ctx, event))

	stored, err := h.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, stored.Status)
	require.NotNil(t, stored.PaymentRef)
	assert.Equal(t, "pi_123", *stored.PaymentRef)
	assert.Equal(t, []string{"Stripe payment successful. PaymentIntent: pi_123."}, h.notes(t, order.ID))
	require.Len(t, h.settler.calls, 1)
	assert.Equal(t, settleCall{orderID: order.ID, captureRef: "ch_123"}, h.settler.calls[0])

	// Settlement is now claimed; the redelivery changes nothing.
	_, err = h.repo.ClaimSettlement(ctx, order.ID, "ch_123")
	require.NoError(t, err)
	require.NoError(t, h.svc.HandleEvent(ctx, event))
	assert.Len(t, h.notes(t, order.ID), 1)
	assert.Len(t, h.settler.calls, 1)
}

func TestPaymentSucceededRetriesSettlementAfterError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.placeOrder(t, enums.OrderStatusOnHold, "")
	event := stripeEvent(t, "evt_1", stripe.EventTypePaymentIntentSucceeded, paymentIntent(order.ID, nil))

	h.settler.err = pkgerrors.New(pkgerrors.CodeDependency, "gateway timeout")
	assert.Error(t, h.svc.HandleEvent(ctx, event))

	h.settler.err = nil
	require.NoError(t, h.svc.HandleEvent(ctx, event))
	assert.Len(t, h.settler.calls, 2)
	assert.Len(t, h.notes(t, order.ID), 1)
}

func TestPaymentSucceededWithoutKnownOrderIsAcknowledged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	noOrder := stripeEvent(t, "evt_1", stripe.EventTypePaymentIntentSucceeded, map[string]any{"id": "pi_1"})
	assert.NoError(t, h.svc.HandleEvent(ctx, noOrder))

	missing := stripeEvent(t, "evt_2", stripe.EventTypePaymentIntentSucceeded, paymentIntent(uuid.New(), nil))
	assert.NoError(t, h.svc.HandleEvent(ctx, missing))
	assert.Empty(t, h.settler.calls)
}

func TestPaymentFailedMarksAwaitingOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.placeOrder(t, enums.OrderStatusPending, "")
	event := stripeEvent(t, "evt_1", stripe.EventTypePaymentIntentPaymentFailed, paymentIntent(order.ID, map[string]any{
		"last_payment_error": map[string]any{"message": "Your card was declined."},
	}))

	require.NoError(t, h.svc.HandleEvent(ctx, event))
	stored, err := h.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, stored.Status)
	assert.Equal(t, []string{"Payment failed: Your card was declined. (PaymentIntent: pi_123)"}, h.notes(t, order.ID))

	processing := h.placeOrder(t, enums.OrderStatusProcessing, "")
	late := stripeEvent(t, "evt_2", stripe.EventTypePaymentIntentPaymentFailed, paymentIntent(processing.ID, nil))
	require.NoError(t, h.svc.HandleEvent(ctx, late))
	stored, err = h.repo.FindByID(ctx, processing.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, stored.Status)
}

func TestChargeRefundedBooksTheDifference(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.placeOrder(t, enums.OrderStatusProcessing, "pi_9")

	partial := stripeEvent(t, "evt_1", stripe.EventTypeChargeRefunded, map[string]any{
		"id": "ch_9", "amount": 4500, "amount_refunded": 1500, "currency": "usd", "payment_intent": "pi_9",
	})
	require.NoError(t, h.svc.HandleEvent(ctx, partial))

	full := stripeEvent(t, "evt_2", stripe.EventTypeChargeRefunded, map[string]any{
		"id": "ch_9", "amount": 4500, "amount_refunded": 4500, "currency": "usd", "refunded": true, "payment_intent": "pi_9",
	})
	require.NoError(t, h.svc.HandleEvent(ctx, full))

	assert.Equal(t, []string{
		"Stripe refund processed: 15.00 USD. Charge: ch_9",
		"Stripe refund processed: 45.00 USD. Charge: ch_9",
	}, h.notes(t, order.ID))

	entries, err := h.ledger.ListForOrder(ctx, order.ID)
	require.NoError(t, err)
	var amounts []int64
	for _, e := range entries {
		assert.Equal(t, enums.LedgerEventTypeRefund, e.Type)
		amounts = append(amounts, e.AmountCents)
	}
	assert.ElementsMatch(t, []int64{1500, 3000}, amounts)

	events, err := h.outbox.ListByAggregate(order.ID.String())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, enums.EventOrderRefunded, events[0].EventType)

	stored, err := h.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SettlementStateUnsettled, stored.SettlementState)
}

func TestChargeRefundedRedeliveryBooksNothingNew(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.placeOrder(t, enums.OrderStatusProcessing, "pi_9")
	refund := map[string]any{
		"id": "ch_9", "amount": 4500, "amount_refunded": 1500, "currency": "usd", "payment_intent": "pi_9",
	}

	require.NoError(t, h.svc.HandleEvent(ctx, stripeEvent(t, "evt_1", stripe.EventTypeChargeRefunded, refund)))
	// Same cumulative amount under a new event id, as after the dedup window lapses.
	require.NoError(t, h.svc.HandleEvent(ctx, stripeEvent(t, "evt_1_again", stripe.EventTypeChargeRefunded, refund)))

	assert.Equal(t, []string{"Stripe refund processed: 15.00 USD. Charge: ch_9"}, h.notes(t, order.ID))
	entries, err := h.ledger.ListForOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	events, err := h.outbox.ListByAggregate(order.ID.String())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestUndecodableEventIsAcknowledged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	noID := stripeEvent(t, "evt_1", stripe.EventTypeAccountUpdated, map[string]any{"object": "account", "charges_enabled": true})
	require.NoError(t, h.svc.HandleEvent(ctx, noID))

	garbled := &stripe.Event{ID: "evt_2", Type: stripe.EventTypeChargeRefunded, Data: &stripe.EventData{Raw: []byte("{")}}
	require.NoError(t, h.svc.HandleEvent(ctx, garbled))

	assert.Empty(t, h.accounts.updates)
	assert.Empty(t, h.settler.calls)
}

func TestChargeRefundedForUnknownIntentIsAcknowledged(t *testing.T) {
	h := newHarness(t)
	event := stripeEvent(t, "evt_1", stripe.EventTypeChargeRefunded, map[string]any{
		"id": "ch_1", "amount_refunded": 100, "currency": "usd", "payment_intent": "pi_missing",
	})
	assert.NoError(t, h.svc.HandleEvent(context.Background(), event))
}

func TestUnknownEventIsAcknowledgedWithoutChanges(t *testing.T) {
	h := newHarness(t)
	order := h.placeOrder(t, enums.OrderStatusPending, "")
	event := stripeEvent(t, "evt_1", stripe.EventType("invoice.created"), map[string]any{"id": "in_1"})

	require.NoError(t, h.svc.HandleEvent(context.Background(), event))
	assert.Empty(t, h.notes(t, order.ID))
	assert.Empty(t, h.settler.calls)
}
