package settlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/internal/ledger"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/pkg/db"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/metrics"
	"github.com/extrachill/marketplace-settlement/pkg/outbox"
	"github.com/extrachill/marketplace-settlement/pkg/outbox/payloads"
	stripeclient "github.com/extrachill/marketplace-settlement/pkg/stripe"
)

const (
	notePrefix     = "Stripe Connect: "
	platformName   = "extrachill"
	transferPrefix = "ORDER_"
)

// TransferGateway issues and reverses transfers to connected accounts.
// *stripe.Client from pkg/stripe satisfies it.
type TransferGateway interface {
	CreateTransfer(ctx context.Context, req stripeclient.TransferRequest) (*stripe.Transfer, error)
	ReverseTransfer(ctx context.Context, transferID, idempotencyKey string) (*stripe.TransferReversal, error)
}

// SellerAccounts answers payout readiness for preflight validation.
type SellerAccounts interface {
	AccountsFor(ctx context.Context, sellerIDs []int64) (map[int64]*models.SellerAccount, error)
	CanReceivePayments(ctx context.Context, sellerID int64) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrchestratorParams wires the transfer orchestrator.
type OrchestratorParams struct {
	Orders     orders.Repository
	Records    RecordRepository
	Sellers    SellerAccounts
	Calculator *Calculator
	// Gateway may be nil; Settle then fails with CONFIGURATION_ERROR.
	Gateway TransferGateway
	Ledger  ledger.Service
	Outbox  outbox.Emitter
	Tx      txRunner
	Metrics *metrics.SettlementMetrics
	Logger  *logger.Logger

	PlatformSellerID int64
	// ReverseOnFailure reverses transfers already issued for an order when a
	// later transfer fails. Off by default.
	ReverseOnFailure bool
}

// Orchestrator settles captured orders into per-seller transfers.
type Orchestrator struct {
	orders     orders.Repository
	records    RecordRepository
	sellers    SellerAccounts
	calc       *Calculator
	gateway    TransferGateway
	ledger     ledger.Service
	outbox     outbox.Emitter
	tx         txRunner
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger
	platformID int64
	reverse    bool
}

func NewOrchestrator(p OrchestratorParams) (*Orchestrator, error) {
	switch {
	case p.Orders == nil:
		return nil, errors.New("orders repository required")
	case p.Records == nil:
		return nil, errors.New("settlement record repository required")
	case p.Sellers == nil:
		return nil, errors.New("seller accounts required")
	case p.Calculator == nil:
		return nil, errors.New("calculator required")
	case p.Ledger == nil:
		return nil, errors.New("ledger service required")
	case p.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case p.Tx == nil:
		return nil, errors.New("transaction runner required")
	case p.Logger == nil:
		return nil, errors.New("logger required")
	}
	return &Orchestrator{
		orders:     p.Orders,
		records:    p.Records,
		sellers:    p.Sellers,
		calc:       p.Calculator,
		gateway:    p.Gateway,
		ledger:     p.Ledger,
		outbox:     p.Outbox,
		tx:         p.Tx,
		metrics:    p.Metrics,
		logg:       p.Logger,
		platformID: p.PlatformSellerID,
		reverse:    p.ReverseOnFailure,
	}, nil
}

// TransferGroup is the gateway grouping token of an order.
func TransferGroup(orderID uuid.UUID) string {
	return transferPrefix + orderID.String()
}

// IdempotencyKey is the per-seller transfer token of an order.
func IdempotencyKey(orderID uuid.UUID, sellerID int64) string {
	return fmt.Sprintf("settlement:%s:%d", orderID, sellerID)
}

// Settle runs settlement for a captured order. Only one caller can claim an
// order; every other call returns the current result with AlreadyProcessed
// set. Business outcomes (validation failure, a failed transfer) are
// reported through Result.State. The error covers an uncaptured payment,
// configuration and infrastructure failures.
func (o *Orchestrator) Settle(ctx context.Context, orderID uuid.UUID, captureRef string) (*Result, error) {
	ctx = o.logg.WithOrderID(ctx, orderID.String())

	order, err := o.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Settleable() {
		o.logg.Warn(o.logg.WithField(ctx, "order_status", order.Status), "settlement.payment_not_captured")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order payment has not been captured").
			WithDetails(map[string]any{"status": order.Status})
	}
	groups := GroupBySeller(order.LineItems, o.platformID)
	platformOnly := PlatformOnly(groups)
	if !platformOnly && o.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway not configured")
	}
	captureRef = strings.TrimSpace(captureRef)
	if captureRef == "" && order.CaptureRef != nil {
		captureRef = *order.CaptureRef
	}

	won, err := o.orders.ClaimSettlement(ctx, orderID, captureRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim settlement")
	}
	if !won {
		o.logg.Info(ctx, "settlement.already_processed")
		res, err := o.current(ctx, orderID)
		if err != nil {
			return nil, err
		}
		res.AlreadyProcessed = true
		o.metrics.IncRun("already_processed")
		return res, nil
	}

	ctx = o.logg.WithField(ctx, "rate_policy", o.calc.Policy())
	calcs := o.calc.CalculateAll(ctx, groups)
	if platformOnly {
		return o.settlePlatformOnly(ctx, order, calcs)
	}
	currency := strings.ToLower(order.Currency)

	accounts, issues, err := o.preflight(ctx, calcs, captureRef)
	if err != nil {
		o.release(ctx, orderID)
		return nil, err
	}
	if len(issues) > 0 {
		return o.failValidation(ctx, order, calcs, issues)
	}

	group := TransferGroup(orderID)
	records, err := o.prepareRecords(ctx, order, calcs, group)
	if err != nil {
		o.release(ctx, orderID)
		return nil, err
	}

	failed := o.transferAll(ctx, order, records, accounts, captureRef, group, currency)
	if failed != nil {
		return o.finishPartial(ctx, order, records, failed)
	}
	return o.finishSettled(ctx, order, records)
}

func (o *Orchestrator) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := o.orders.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (o *Orchestrator) current(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	order, err := o.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	records, err := o.records.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settlement records")
	}
	return resultFrom(order, records), nil
}

// release hands a claimed order back when settlement could not run for
// reasons outside the order itself.
func (o *Orchestrator) release(ctx context.Context, orderID uuid.UUID) {
	if _, err := o.orders.SetSettlementState(ctx, orderID, enums.SettlementStateValidating, enums.SettlementStateUnsettled, nil); err != nil {
		o.logg.Error(ctx, "settlement.release_failed", err)
	}
	o.metrics.IncRun("error")
}

// preflight checks every seller group before any money moves. Issues are
// business failures; the error is an infrastructure failure.
func (o *Orchestrator) preflight(ctx context.Context, calcs []Calculation, captureRef string) (map[int64]*models.SellerAccount, []string, error) {
	var sellerIDs []int64
	for _, c := range calcs {
		if c.SellerID != PlatformSellerID {
			sellerIDs = append(sellerIDs, c.SellerID)
		}
	}
	accounts, err := o.sellers.AccountsFor(ctx, sellerIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller accounts")
	}

	var issues error
	if captureRef == "" {
		issues = multierr.Append(issues, errors.New("no payment capture reference found"))
	}
	for _, sellerID := range sellerIDs {
		account := accounts[sellerID]
		if account == nil || account.StripeAccountID == "" {
			issues = multierr.Append(issues, fmt.Errorf("seller %d does not have a connected Stripe account", sellerID))
			continue
		}
		if account.IsActive() {
			continue
		}
		ok, err := o.sellers.CanReceivePayments(ctx, sellerID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh seller account")
		}
		if !ok {
			issues = multierr.Append(issues, fmt.Errorf("seller %d account cannot receive payments", sellerID))
		}
	}

	errs := multierr.Errors(issues)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return accounts, out, nil
}

func (o *Orchestrator) failValidation(ctx context.Context, order *models.Order, calcs []Calculation, issues []string) (*Result, error) {
	reason := strings.Join(issues, "; ")
	err := o.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := o.orders.WithTx(tx)
		if _, err := repo.SetSettlementState(ctx, order.ID, enums.SettlementStateValidating, enums.SettlementStateValidationFailed, nil); err != nil {
			return err
		}
		if err := repo.AddNote(ctx, &models.OrderNote{
			OrderID: order.ID,
			Body:    notePrefix + "Artist payment processing failed - " + reason,
		}); err != nil {
			return err
		}
		return o.emitFailed(ctx, tx, order.ID, enums.SettlementStateValidationFailed, reason, nil, 0)
	})
	if err != nil {
		o.release(ctx, order.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record validation failure")
	}

	o.logg.Warn(o.logg.WithField(ctx, "issues", issues), "settlement.validation_failed")
	o.metrics.IncRun(string(enums.SettlementStateValidationFailed))

	res := &Result{
		OrderID:  order.ID,
		State:    enums.SettlementStateValidationFailed,
		Currency: order.Currency,
		Issues:   issues,
	}
	for _, c := range calcs {
		res.Groups = append(res.Groups, GroupResult{
			SellerID:        c.SellerID,
			SubtotalCents:   c.SubtotalCents,
			CommissionRate:  c.Rate.String(),
			CommissionCents: c.CommissionCents,
			PayoutCents:     c.PayoutCents,
			Status:          enums.TransferStatusPending,
		})
	}
	return res, nil
}

func (o *Orchestrator) settlePlatformOnly(ctx context.Context, order *models.Order, calcs []Calculation) (*Result, error) {
	now := time.Now().UTC()
	var records []models.SettlementRecord
	err := o.tx.WithTx(ctx, func(tx *gorm.DB) error {
		existing, err := o.records.WithTx(tx).ListByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		records = mergeRecords(order.ID, calcs, existing)
		if err := o.records.WithTx(tx).Create(ctx, newRecords(records, existing)); err != nil {
			return err
		}
		repo := o.orders.WithTx(tx)
		if _, err := repo.SetSettlementState(ctx, order.ID, enums.SettlementStateValidating, enums.SettlementStateSettled, map[string]any{"settled_at": now}); err != nil {
			return err
		}
		if err := o.bookLedger(ctx, tx, order, records); err != nil {
			return err
		}
		if err := repo.AddNote(ctx, &models.OrderNote{
			OrderID: order.ID,
			Body:    notePrefix + "Order contains only platform products. No transfers required.",
		}); err != nil {
			return err
		}
		return o.emitCompleted(ctx, tx, order, records, "", now)
	})
	if err != nil {
		o.release(ctx, order.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record platform settlement")
	}

	o.logg.Info(ctx, "settlement.platform_only")
	o.metrics.IncRun(string(enums.SettlementStateSettled))
	order.SettlementState = enums.SettlementStateSettled
	return resultFrom(order, records), nil
}

// prepareRecords writes one pending record per group and stamps the
// transfer group on the order. Records left by an earlier attempt are kept.
func (o *Orchestrator) prepareRecords(ctx context.Context, order *models.Order, calcs []Calculation, group string) ([]models.SettlementRecord, error) {
	var records []models.SettlementRecord
	err := o.tx.WithTx(ctx, func(tx *gorm.DB) error {
		existing, err := o.records.WithTx(tx).ListByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		records = mergeRecords(order.ID, calcs, existing)
		if err := o.records.WithTx(tx).Create(ctx, newRecords(records, existing)); err != nil {
			return err
		}
		_, err = o.orders.WithTx(tx).SetSettlementState(ctx, order.ID, enums.SettlementStateValidating, enums.SettlementStateValidating, map[string]any{"transfer_group": group})
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write settlement records")
	}
	order.TransferGroup = &group
	return records, nil
}

// transferAll issues transfers in group order and stops at the first
// failure. It returns the failed record, or nil when every transfer landed.
func (o *Orchestrator) transferAll(ctx context.Context, order *models.Order, records []models.SettlementRecord, accounts map[int64]*models.SellerAccount, captureRef, group, currency string) *models.SettlementRecord {
	for i := range records {
		rec := &records[i]
		if rec.Status != enums.TransferStatusPending {
			continue
		}
		sellerCtx := o.logg.WithSellerID(ctx, rec.SellerID)

		account := accounts[rec.SellerID]
		if account == nil {
			o.markFailed(sellerCtx, rec, "connected account not found")
			return rec
		}

		started := time.Now()
		transfer, err := o.gateway.CreateTransfer(sellerCtx, stripeclient.TransferRequest{
			AmountCents:       rec.PayoutCents,
			Currency:          currency,
			Destination:       account.StripeAccountID,
			SourceTransaction: captureRef,
			TransferGroup:     group,
			IdempotencyKey:    IdempotencyKey(order.ID, rec.SellerID),
			Metadata: map[string]string{
				"order_id":        order.ID.String(),
				"seller_id":       strconv.FormatInt(rec.SellerID, 10),
				"platform":        platformName,
				"commission_rate": rec.CommissionRate.String(),
			},
		})
		if err != nil {
			o.metrics.ObserveTransfer(string(enums.TransferStatusFailed), time.Since(started))
			o.logg.Error(sellerCtx, "settlement.transfer_failed", err)
			o.markFailed(sellerCtx, rec, stripeclient.FailureReason(err))
			return rec
		}
		o.metrics.ObserveTransfer(string(enums.TransferStatusTransferred), time.Since(started))

		if err := o.records.MarkTransferred(sellerCtx, rec.ID, transfer.ID); err != nil {
			// The money moved; the gateway idempotency key makes a manual rerun safe.
			o.logg.Error(o.logg.WithField(sellerCtx, "transfer_id", transfer.ID), "settlement.record_update_failed", err)
		}
		rec.Status = enums.TransferStatusTransferred
		rec.TransferID = &transfer.ID
		o.logg.Info(o.logg.WithField(sellerCtx, "transfer_id", transfer.ID), "settlement.transfer_created")
	}
	return nil
}

func (o *Orchestrator) markFailed(ctx context.Context, rec *models.SettlementRecord, reason string) {
	if err := o.records.MarkFailed(ctx, rec.ID, reason); err != nil {
		o.logg.Error(ctx, "settlement.record_update_failed", err)
	}
	rec.Status = enums.TransferStatusFailed
	rec.FailureReason = &reason
}

// reverseIssued compensates transfers already made for the order.
func (o *Orchestrator) reverseIssued(ctx context.Context, order *models.Order, records []models.SettlementRecord) []models.SettlementRecord {
	var reversed []models.SettlementRecord
	for i := range records {
		rec := &records[i]
		if rec.Status != enums.TransferStatusTransferred || rec.TransferID == nil {
			continue
		}
		sellerCtx := o.logg.WithSellerID(ctx, rec.SellerID)
		if _, err := o.gateway.ReverseTransfer(sellerCtx, *rec.TransferID, IdempotencyKey(order.ID, rec.SellerID)+":reversal"); err != nil {
			o.logg.Error(sellerCtx, "settlement.reversal_failed", err)
			continue
		}
		if err := o.records.MarkReversed(sellerCtx, rec.ID); err != nil {
			o.logg.Error(sellerCtx, "settlement.record_update_failed", err)
		}
		rec.Status = enums.TransferStatusReversed
		reversed = append(reversed, *rec)
	}
	return reversed
}

func (o *Orchestrator) finishPartial(ctx context.Context, order *models.Order, records []models.SettlementRecord, failed *models.SettlementRecord) (*Result, error) {
	var reversed []models.SettlementRecord
	if o.reverse {
		reversed = o.reverseIssued(ctx, order, records)
	}
	reason := ""
	if failed.FailureReason != nil {
		reason = *failed.FailureReason
	}
	note := notePrefix + "Artist payment processing failed - " + describeOutcome(records)

	err := o.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := o.orders.WithTx(tx)
		if _, err := repo.SetSettlementState(ctx, order.ID, enums.SettlementStateValidating, enums.SettlementStatePartiallySettled, nil); err != nil {
			return err
		}
		if err := o.bookLedger(ctx, tx, order, records); err != nil {
			return err
		}
		for _, rec := range reversed {
			if _, err := o.ledger.WithTx(tx).RecordEvent(ctx, ledger.RecordLedgerEventInput{
				OrderID:     order.ID,
				SellerID:    rec.SellerID,
				Type:        enums.LedgerEventTypeTransferReversal,
				AmountCents: rec.PayoutCents,
				Currency:    order.Currency,
				Reference:   derefString(rec.TransferID),
			}); err != nil {
				return err
			}
		}
		if err := repo.AddNote(ctx, &models.OrderNote{OrderID: order.ID, Body: note}); err != nil {
			return err
		}
		sellerID := failed.SellerID
		return o.emitFailed(ctx, tx, order.ID, enums.SettlementStatePartiallySettled, reason, &sellerID, countStatus(records, enums.TransferStatusTransferred))
	})
	if err != nil {
		// Transfers already moved money; leave the order in validating for
		// manual review rather than handing it back for another run.
		o.logg.Error(ctx, "settlement.partial_record_failed", err)
		o.metrics.IncRun("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record partial settlement")
	}

	o.logg.Warn(o.logg.WithFields(ctx, map[string]any{
		"failed_seller_id": failed.SellerID,
		"reversed":         len(reversed),
	}), "settlement.partially_settled")
	o.metrics.IncRun(string(enums.SettlementStatePartiallySettled))

	order.SettlementState = enums.SettlementStatePartiallySettled
	res := resultFrom(order, records)
	res.Issues = []string{reason}
	return res, nil
}

func (o *Orchestrator) finishSettled(ctx context.Context, order *models.Order, records []models.SettlementRecord) (*Result, error) {
	now := time.Now().UTC()
	transfers := countStatus(records, enums.TransferStatusTransferred)
	err := o.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := o.orders.WithTx(tx)
		if _, err := repo.SetSettlementState(ctx, order.ID, enums.SettlementStateValidating, enums.SettlementStateSettled, map[string]any{"settled_at": now}); err != nil {
			return err
		}
		if err := o.bookLedger(ctx, tx, order, records); err != nil {
			return err
		}
		if err := repo.AddNote(ctx, &models.OrderNote{
			OrderID: order.ID,
			Body:    fmt.Sprintf("%sArtist payments processed successfully. %d transfer(s) created.", notePrefix, transfers),
		}); err != nil {
			return err
		}
		return o.emitCompleted(ctx, tx, order, records, derefString(order.TransferGroup), now)
	})
	if err != nil {
		o.logg.Error(ctx, "settlement.settled_record_failed", err)
		o.metrics.IncRun("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record settlement")
	}

	o.logg.Info(o.logg.WithField(ctx, "transfers", transfers), "settlement.settled")
	o.metrics.IncRun(string(enums.SettlementStateSettled))

	order.SettlementState = enums.SettlementStateSettled
	order.SettledAt = &now
	return resultFrom(order, records), nil
}

// bookLedger records money that actually moved: payouts for transferred
// records and the commission the platform kept on them.
func (o *Orchestrator) bookLedger(ctx context.Context, tx *gorm.DB, order *models.Order, records []models.SettlementRecord) error {
	svc := o.ledger.WithTx(tx)
	for _, rec := range records {
		keeps := rec.Status == enums.TransferStatusTransferred || rec.Status == enums.TransferStatusReversed || rec.Status == enums.TransferStatusNotRequired
		if !keeps {
			continue
		}
		if rec.Status != enums.TransferStatusNotRequired && rec.PayoutCents > 0 {
			if _, err := svc.RecordEvent(ctx, ledger.RecordLedgerEventInput{
				OrderID:     order.ID,
				SellerID:    rec.SellerID,
				Type:        enums.LedgerEventTypeSellerPayout,
				AmountCents: rec.PayoutCents,
				Currency:    order.Currency,
				Reference:   derefString(rec.TransferID),
			}); err != nil {
				return err
			}
		}
		if rec.CommissionCents > 0 {
			if _, err := svc.RecordEvent(ctx, ledger.RecordLedgerEventInput{
				OrderID:     order.ID,
				SellerID:    rec.SellerID,
				Type:        enums.LedgerEventTypeCommissionRetained,
				AmountCents: rec.CommissionCents,
				Currency:    order.Currency,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) emitCompleted(ctx context.Context, tx *gorm.DB, order *models.Order, records []models.SettlementRecord, group string, at time.Time) error {
	event := payloads.SettlementCompletedEvent{
		OrderID:       order.ID,
		Currency:      order.Currency,
		TransferGroup: group,
		SettledAt:     at,
	}
	for _, rec := range records {
		event.PlatformCents += rec.CommissionCents
		if rec.SellerID == PlatformSellerID {
			continue
		}
		if rec.Status == enums.TransferStatusTransferred {
			event.TransferCount++
		}
		event.Payouts = append(event.Payouts, payloads.SellerPayout{
			SellerID:        rec.SellerID,
			SubtotalCents:   rec.SubtotalCents,
			CommissionCents: rec.CommissionCents,
			PayoutCents:     rec.PayoutCents,
			CommissionRate:  rec.CommissionRate.String(),
			TransferID:      derefString(rec.TransferID),
			Status:          string(rec.Status),
		})
	}
	return o.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSettlementCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID.String(),
		Actor:         &outbox.ActorRef{Source: "settlement"},
		Data:          event,
	})
}

func (o *Orchestrator) emitFailed(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, state enums.SettlementState, reason string, sellerID *int64, transfers int) error {
	return o.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSettlementFailed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID.String(),
		Actor:         &outbox.ActorRef{Source: "settlement"},
		Data: payloads.SettlementFailedEvent{
			OrderID:         orderID,
			SettlementState: string(state),
			Reason:          reason,
			FailedSellerID:  sellerID,
			TransferCount:   transfers,
		},
	})
}

// mergeRecords lines up one record per calculation, reusing existing rows.
func mergeRecords(orderID uuid.UUID, calcs []Calculation, existing []models.SettlementRecord) []models.SettlementRecord {
	bySeller := make(map[int64]models.SettlementRecord, len(existing))
	for _, rec := range existing {
		bySeller[rec.SellerID] = rec
	}
	out := make([]models.SettlementRecord, 0, len(calcs))
	for i, c := range calcs {
		if rec, ok := bySeller[c.SellerID]; ok {
			out = append(out, rec)
			continue
		}
		status := enums.TransferStatusPending
		if c.SellerID == PlatformSellerID || c.PayoutCents <= 0 {
			status = enums.TransferStatusNotRequired
		}
		out = append(out, models.SettlementRecord{
			ID:              uuid.New(),
			OrderID:         orderID,
			SellerID:        c.SellerID,
			Position:        i,
			SubtotalCents:   c.SubtotalCents,
			CommissionRate:  c.Rate,
			CommissionCents: c.CommissionCents,
			PayoutCents:     c.PayoutCents,
			Status:          status,
		})
	}
	return out
}

func newRecords(all, existing []models.SettlementRecord) []models.SettlementRecord {
	known := make(map[uuid.UUID]bool, len(existing))
	for _, rec := range existing {
		known[rec.ID] = true
	}
	var out []models.SettlementRecord
	for _, rec := range all {
		if !known[rec.ID] {
			out = append(out, rec)
		}
	}
	return out
}

func describeOutcome(records []models.SettlementRecord) string {
	var parts []string
	for _, rec := range records {
		switch rec.Status {
		case enums.TransferStatusTransferred:
			parts = append(parts, fmt.Sprintf("seller %d transferred (%s)", rec.SellerID, derefString(rec.TransferID)))
		case enums.TransferStatusReversed:
			parts = append(parts, fmt.Sprintf("seller %d reversed (%s)", rec.SellerID, derefString(rec.TransferID)))
		case enums.TransferStatusFailed:
			parts = append(parts, fmt.Sprintf("seller %d failed: %s", rec.SellerID, derefString(rec.FailureReason)))
		case enums.TransferStatusPending:
			parts = append(parts, fmt.Sprintf("seller %d not attempted", rec.SellerID))
		}
	}
	return strings.Join(parts, "; ")
}

func countStatus(records []models.SettlementRecord, status enums.TransferStatus) int {
	n := 0
	for _, rec := range records {
		if rec.Status == status {
			n++
		}
	}
	return n
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
