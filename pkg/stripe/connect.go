package stripe

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// TransferRequest describes one Connect transfer to a seller's account.
type TransferRequest struct {
	AmountCents       int64
	Currency          string
	Destination       string
	SourceTransaction string
	TransferGroup     string
	IdempotencyKey    string
	Metadata          map[string]string
}

// ExpressAccountRequest carries the seller details used to open an Express account.
type ExpressAccountRequest struct {
	SellerID int64
	Email    string
	Name     string
}

// CreateTransfer issues a transfer. The idempotency key makes gateway retries
// of the same order and seller collapse into one transfer.
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest) (*stripe.Transfer, error) {
	if c == nil || c.api == nil {
		return nil, errNotInitialized
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = c.Currency()
	}
	params := &stripe.TransferCreateParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(currency),
		Destination: stripe.String(req.Destination),
	}
	if req.SourceTransaction != "" {
		params.SourceTransaction = stripe.String(req.SourceTransaction)
	}
	if req.TransferGroup != "" {
		params.TransferGroup = stripe.String(req.TransferGroup)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	return c.api.V1Transfers.Create(ctx, params)
}

// ReverseTransfer reverses the full amount of a previously issued transfer.
func (c *Client) ReverseTransfer(ctx context.Context, transferID, idempotencyKey string) (*stripe.TransferReversal, error) {
	if c == nil || c.api == nil {
		return nil, errNotInitialized
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripe.TransferReversalCreateParams{ID: stripe.String(transferID)}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	return c.api.V1TransferReversals.Create(ctx, params)
}

// CreateExpressAccount opens an Express connected account with card payments
// and transfers requested.
func (c *Client) CreateExpressAccount(ctx context.Context, req ExpressAccountRequest) (*stripe.Account, error) {
	if c == nil || c.api == nil {
		return nil, errNotInitialized
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripe.AccountCreateParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Capabilities: &stripe.AccountCreateCapabilitiesParams{
			CardPayments: &stripe.AccountCreateCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCreateCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("seller_id", strconv.FormatInt(req.SellerID, 10))
	if req.Name != "" {
		params.AddMetadata("seller_name", req.Name)
	}
	return c.api.V1Accounts.Create(ctx, params)
}

// GetAccount fetches the current capabilities of a connected account.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	if c == nil || c.api == nil {
		return nil, errNotInitialized
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.api.V1Accounts.GetByID(ctx, accountID, &stripe.AccountRetrieveParams{})
}

// CreateOnboardingLink returns a hosted onboarding URL for an account that
// has not finished its requirements.
func (c *Client) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	if c == nil || c.api == nil {
		return "", errNotInitialized
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripe.AccountLinkCreateParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(c.refreshURL),
		ReturnURL:  stripe.String(c.returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	link, err := c.api.V1AccountLinks.Create(ctx, params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// CreateDashboardLink returns a login link into the Express dashboard.
func (c *Client) CreateDashboardLink(ctx context.Context, accountID string) (string, error) {
	if c == nil || c.api == nil {
		return "", errNotInitialized
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripe.LoginLinkCreateParams{Account: stripe.String(accountID)}
	link, err := c.api.V1LoginLinks.Create(ctx, params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// FailureReason extracts the gateway's message from err, falling back to the
// error text.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}
