package sellers

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	stripeclient "github.com/extrachill/marketplace-settlement/pkg/stripe"
)

// Gateway is the subset of the payment gateway the seller directory needs.
// *stripe.Client from pkg/stripe satisfies it.
type Gateway interface {
	CreateExpressAccount(ctx context.Context, req stripeclient.ExpressAccountRequest) (*stripe.Account, error)
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
	CreateOnboardingLink(ctx context.Context, accountID string) (string, error)
	CreateDashboardLink(ctx context.Context, accountID string) (string, error)
}

// FlagsOf lifts the capability flags off a gateway account.
func FlagsOf(acct *stripe.Account) AccountFlags {
	if acct == nil {
		return AccountFlags{}
	}
	return AccountFlags{
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}
}
