package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrSignature means the delivery signature did not match the shared secret.
var ErrSignature = errors.New("webhook signature verification failed")

type Reconciler interface {
	Reconcile(ctx context.Context, event domain.GatewayEvent) error
}

// Dispatcher verifies, decodes and routes gateway deliveries.
type Dispatcher struct {
	reconciler Reconciler
	secret     string
	timeout    time.Duration
	log        *slog.Logger
}

// NewDispatcher returns a dispatcher. An empty secret disables signature checks.
func NewDispatcher(reconciler Reconciler, secret string, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		reconciler: reconciler,
		secret:     secret,
		timeout:    timeout,
		log:        log,
	}
}

// Dispatch processes one delivery to completion. It does not stop when the
// caller's context is canceled, only when its own timeout runs out.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte, signature string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	log := logger.FromContext(ctx, d.log)

	if d.secret != "" {
		if err := webhook.ValidatePayload(payload, signature, d.secret); err != nil {
			log.Warn("webhook signature rejected", "error", err)
			return fmt.Errorf("%w: %w", ErrSignature, err)
		}
	}

	event, err := Decode(payload)
	if err != nil {
		log.Warn("webhook dropped", "error", err)
		return err
	}

	log = log.With("event_id", event.EventID(), "event_type", event.EventType())
	if err := d.reconciler.Reconcile(ctx, event); err != nil {
		if errors.Is(err, domain.ErrInvalidWebhook) {
			log.Warn("webhook dropped", "error", err)
		} else {
			log.Error("webhook processing failed", "error", err)
		}
		return err
	}

	log.Debug("webhook processed")
	return nil
}

// Acknowledge reports whether a delivery that ended with err must be answered
// with a 2xx. Malformed events are acknowledged so the gateway stops
// redelivering them; every other failure asks for a redelivery.
func Acknowledge(err error) bool {
	return err == nil || errors.Is(err, domain.ErrInvalidWebhook)
}
