package stripe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/extrachill/marketplace-settlement/pkg/config"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultTimeout  = 30 * time.Second
	defaultCurrency = "usd"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errNotInitialized   = errors.New("stripe client not initialized")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

var (
	initMu  sync.Mutex
	clients = map[string]*Client{}
)

// Client wraps the Stripe API plus the env-specific settings the marketplace
// needs for Connect transfers, onboarding links and webhook verification.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
	currency      string
	timeout       time.Duration
	refreshURL    string
	returnURL     string
}

// Initialize returns the gateway client for cfg. Calling it again with the same
// credentials returns the same client, so callers never consult package state to
// know whether the gateway was set up. A missing key pair yields a
// CONFIGURATION_ERROR.
func Initialize(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.IsConfigured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway is not configured")
	}

	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "invalid stripe environment")
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, errAPIKeyRequired, "invalid stripe credentials")
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "invalid stripe credentials")
	}

	fingerprint := cacheKey(env, apiKey, cfg)

	initMu.Lock()
	defer initMu.Unlock()

	if existing, ok := clients[fingerprint]; ok {
		return existing, nil
	}

	// Each client carries its own key; the package-level stripe.Key stays unset.
	client := &Client{
		api:           stripe.NewClient(apiKey),
		environment:   env,
		signingSecret: strings.TrimSpace(cfg.Secret),
		currency:      normalizeCurrency(cfg.Currency),
		timeout:       cfg.RequestTimeout,
		refreshURL:    strings.TrimSpace(cfg.RefreshURL),
		returnURL:     strings.TrimSpace(cfg.ReturnURL),
	}
	if client.timeout <= 0 {
		client.timeout = defaultTimeout
	}
	clients[fingerprint] = client

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}
	return client, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// Currency returns the lower-cased settlement currency.
func (c *Client) Currency() string {
	if c == nil {
		return defaultCurrency
	}
	return c.currency
}

// Timeout returns the per-request deadline applied to gateway calls.
func (c *Client) Timeout() time.Duration {
	if c == nil {
		return defaultTimeout
	}
	return c.timeout
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.Timeout())
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}

func normalizeCurrency(raw string) string {
	currency := strings.ToLower(strings.TrimSpace(raw))
	if currency == "" {
		return defaultCurrency
	}
	return currency
}

func cacheKey(env, apiKey string, cfg config.StripeConfig) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		env,
		apiKey,
		strings.TrimSpace(cfg.PublishableKey),
		strings.TrimSpace(cfg.Secret),
		normalizeCurrency(cfg.Currency),
		cfg.RequestTimeout.String(),
		cfg.RefreshURL,
		cfg.ReturnURL,
	}, "|")))
	return hex.EncodeToString(sum[:])
}
