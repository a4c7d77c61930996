package stripewebhook

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/extrachill/marketplace-settlement/internal/sellers"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
)

// Event is a gateway notification decoded at the boundary. The concrete
// types below are the only implementations.
type Event interface {
	EventID() string
	Kind() string
	isEvent()
}

// AccountUpdated carries the capability flags of a connected account.
type AccountUpdated struct {
	ID        string
	AccountID string
	Flags     sellers.AccountFlags
}

// PaymentSucceeded reports a captured payment intent. OrderID is uuid.Nil
// when the intent carries no usable order reference.
type PaymentSucceeded struct {
	ID              string
	PaymentIntentID string
	OrderID         uuid.UUID
	ChargeID        string
}

// PaymentFailed reports a payment intent that could not be captured.
type PaymentFailed struct {
	ID              string
	PaymentIntentID string
	OrderID         uuid.UUID
	Message         string
}

// ChargeRefunded reports the cumulative refunded amount of a charge.
type ChargeRefunded struct {
	ID                  string
	ChargeID            string
	PaymentIntentID     string
	AmountCents         int64
	AmountRefundedCents int64
	Currency            string
	FullyRefunded       bool
}

// Unknown is any event type the reconciler does not act on.
type Unknown struct {
	ID   string
	Type string
}

func (e AccountUpdated) EventID() string   { return e.ID }
func (e PaymentSucceeded) EventID() string { return e.ID }
func (e PaymentFailed) EventID() string    { return e.ID }
func (e ChargeRefunded) EventID() string   { return e.ID }
func (e Unknown) EventID() string          { return e.ID }

func (AccountUpdated) Kind() string   { return string(stripe.EventTypeAccountUpdated) }
func (PaymentSucceeded) Kind() string { return string(stripe.EventTypePaymentIntentSucceeded) }
func (PaymentFailed) Kind() string    { return string(stripe.EventTypePaymentIntentPaymentFailed) }
func (ChargeRefunded) Kind() string   { return string(stripe.EventTypeChargeRefunded) }
func (e Unknown) Kind() string        { return e.Type }

func (AccountUpdated) isEvent()   {}
func (PaymentSucceeded) isEvent() {}
func (PaymentFailed) isEvent()    {}
func (ChargeRefunded) isEvent()   {}
func (Unknown) isEvent()          {}

// Decode converts a verified gateway event into its typed form.
func Decode(event *stripe.Event) (Event, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}
	switch event.Type {
	case stripe.EventTypeAccountUpdated:
		var account stripe.Account
		if err := decodeObject(event, &account); err != nil {
			return nil, err
		}
		if account.ID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id missing")
		}
		return AccountUpdated{ID: event.ID, AccountID: account.ID, Flags: sellers.FlagsOf(&account)}, nil

	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := decodeObject(event, &intent); err != nil {
			return nil, err
		}
		out := PaymentSucceeded{ID: event.ID, PaymentIntentID: intent.ID, OrderID: orderIDFrom(intent.Metadata)}
		if intent.LatestCharge != nil {
			out.ChargeID = intent.LatestCharge.ID
		}
		return out, nil

	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := decodeObject(event, &intent); err != nil {
			return nil, err
		}
		out := PaymentFailed{ID: event.ID, PaymentIntentID: intent.ID, OrderID: orderIDFrom(intent.Metadata)}
		if intent.LastPaymentError != nil {
			out.Message = intent.LastPaymentError.Msg
		}
		return out, nil

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := decodeObject(event, &charge); err != nil {
			return nil, err
		}
		out := ChargeRefunded{
			ID:                  event.ID,
			ChargeID:            charge.ID,
			AmountCents:         charge.Amount,
			AmountRefundedCents: charge.AmountRefunded,
			Currency:            strings.ToLower(string(charge.Currency)),
			FullyRefunded:       charge.Refunded,
		}
		if charge.PaymentIntent != nil {
			out.PaymentIntentID = charge.PaymentIntent.ID
		}
		return out, nil

	default:
		return Unknown{ID: event.ID, Type: string(event.Type)}, nil
	}
}

func decodeObject(event *stripe.Event, dst any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if err := json.Unmarshal(event.Data.Raw, dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode "+string(event.Type)+" payload")
	}
	return nil
}

func orderIDFrom(metadata map[string]string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(metadata["order_id"]))
	if err != nil {
		return uuid.Nil
	}
	return id
}
