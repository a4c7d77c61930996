package stripe

import (
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
)

// ConstructEvent verifies the Stripe-Signature header against the signing
// secret and parses the payload.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil || c.signingSecret == "" {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, errSecretRequired, "webhook secret is not configured")
	}
	if signature == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeSignature, "missing stripe signature")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.signingSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "invalid stripe signature")
	}
	return event, nil
}
