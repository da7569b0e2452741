package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fjod/storefront/internal/circuitbreaker"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint. Empty means the live Stripe API.
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// RetryInitialInterval is the first backoff delay. Zero means 200ms.
	RetryInitialInterval time.Duration
}

// StripeGateway submits checkout sessions with a bounded retry budget behind a
// circuit breaker. Only transport errors, 5xx and 429 responses are retried.
type StripeGateway struct {
	api     *client.API
	breaker *circuitbreaker.Breaker[*stripe.CheckoutSession]
	cfg     StripeConfig
	log     *slog.Logger
}

func NewStripeGateway(cfg StripeConfig, log *slog.Logger) *StripeGateway {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = 200 * time.Millisecond
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}
	backends := &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
	}

	return &StripeGateway{
		api: client.New(cfg.APIKey, backends),
		breaker: circuitbreaker.New[*stripe.CheckoutSession](circuitbreaker.Settings{
			Name:         "stripe-checkout",
			IsSuccessful: func(err error) bool { return err == nil || !retryable(err) },
		}, log),
		cfg: cfg,
		log: log,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	var (
		session  *stripe.CheckoutSession
		attempts int
	)

	op := func() error {
		attempts++
		params := sessionParams(ctx, req)

		s, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
			return g.api.CheckoutSessions.New(params)
		})
		if err != nil {
			if errors.Is(err, circuitbreaker.ErrOpen) || !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		session = s
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.RetryInitialInterval
	retries := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(g.cfg.MaxRetries, 0))), ctx)

	notify := func(err error, wait time.Duration) {
		logger.FromContext(ctx, g.log).Warn("checkout session attempt failed, retrying",
			"client_reference_id", req.ClientReferenceID, "attempt", attempts, "wait", wait,
			"breaker_state", g.breaker.State(), "error", err)
	}

	if err := backoff.RetryNotify(op, retries, notify); err != nil {
		return nil, domain.GatewayError(fmt.Errorf("create checkout session after %d attempt(s): %w", attempts, err))
	}

	return &Session{ID: session.ID, URL: session.URL}, nil
}

func sessionParams(ctx context.Context, req CheckoutRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID:        stripe.String(req.ClientReferenceID),
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	// Payment intent events carry their own metadata, not the session's.
	params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
		Metadata: req.Metadata,
	}
	return params
}

// retryable reports whether a failed call may succeed if repeated.
func retryable(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return !errors.Is(err, context.Canceled)
	}
	return stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
		stripeErr.HTTPStatusCode == http.StatusTooManyRequests
}
