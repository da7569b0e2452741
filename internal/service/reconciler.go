package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/repository"
)

const notifyTimeout = 5 * time.Second

// Reconciler applies gateway events to orders. Orders only move forward from
// ORDER_CREATED to one terminal state.
type Reconciler struct {
	repo     repository.Repository
	notifier notify.Notifier
	inv      invalidator
	log      *slog.Logger
}

func NewReconciler(repo repository.Repository, notifier notify.Notifier, c cache.Cache, log *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:     repo,
		notifier: notifier,
		inv:      invalidator{cache: c, log: log},
		log:      log,
	}
}

type transition struct {
	eventID   string
	eventType string
	meta      domain.EventMetadata
	target    domain.OrderStatus
	address   *domain.Address
}

type outcome struct {
	order     *domain.Order
	cartID    int64
	placed    bool
	duplicate bool
	ignored   bool
}

// Reconcile applies one event. Malformed or unsupported events fail with
// domain.ErrInvalidWebhook; recognized statuses that need no transition
// succeed without touching the store.
func (r *Reconciler) Reconcile(ctx context.Context, event domain.GatewayEvent) error {
	log := logger.FromContext(ctx, r.log).With("event_id", event.EventID(), "event_type", event.EventType())

	switch e := event.(type) {
	case domain.CheckoutSessionEvent:
		switch e.Status {
		case domain.CheckoutSessionStatusComplete:
			switch {
			case e.Type == domain.EventTypeCheckoutAsyncPaymentFailed:
				return r.apply(ctx, log, transition{e.ID, e.Type, e.Metadata, domain.OrderStatusFailed, nil})
			case e.PaymentStatus == domain.CheckoutPaymentStatusUnpaid:
				log.Info("checkout session complete, payment still pending")
				return nil
			}
			return r.apply(ctx, log, transition{e.ID, e.Type, e.Metadata, domain.OrderStatusPlaced, e.CustomerAddress})
		case domain.CheckoutSessionStatusExpired:
			return r.apply(ctx, log, transition{e.ID, e.Type, e.Metadata, domain.OrderStatusExpired, nil})
		}
		log.Debug("checkout session status needs no transition", "status", e.Status)
		return nil

	case domain.PaymentIntentEvent:
		if e.Status == domain.PaymentIntentStatusCanceled {
			return r.apply(ctx, log, transition{e.ID, e.Type, e.Metadata, domain.OrderStatusFailed, nil})
		}
		log.Debug("payment intent status needs no transition", "status", e.Status)
		return nil

	case domain.UnknownEvent:
		return domain.InvalidWebhook("unsupported event type %q", e.Type)
	}
	return domain.InvalidWebhook("unsupported event %T", event)
}

func (r *Reconciler) apply(ctx context.Context, log *slog.Logger, t transition) error {
	if !t.meta.Valid() {
		return domain.InvalidWebhook("metadata must carry positive ids, got order_id=%d customer_id=%d",
			t.meta.OrderID, t.meta.CustomerID)
	}
	log = log.With("order_id", t.meta.OrderID, "customer_id", t.meta.CustomerID)

	var out outcome
	err := r.repo.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		out = outcome{}
		return r.applyTx(ctx, log, tx, t, &out)
	})
	if err != nil {
		return err
	}

	switch {
	case out.duplicate:
		log.Info("webhook event already processed")
		return nil
	case out.ignored:
		return nil
	}

	r.inv.orderChanged(out.order.ID, out.order.CustomerID)
	if out.cartID != 0 {
		r.inv.cartChanged(out.cartID, out.order.CustomerID)
	}
	log.Info("order reconciled", "status", out.order.Status.String())

	if out.placed {
		r.sendConfirmation(ctx, log, out.order)
	}
	return nil
}

func (r *Reconciler) applyTx(ctx context.Context, log *slog.Logger, tx repository.Tx, t transition, out *outcome) error {
	if t.eventID != "" {
		fresh, err := tx.RecordWebhookEvent(ctx, t.eventID, t.eventType)
		if err != nil {
			return err
		}
		if !fresh {
			out.duplicate = true
			return nil
		}
	}

	// Placement also clears the cart. The cart row is locked before the order
	// row, the same order checkout takes them in.
	var cart *domain.ShoppingCart
	if t.target == domain.OrderStatusPlaced {
		var err error
		cart, err = tx.LockCartByCustomer(ctx, t.meta.CustomerID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}

	order, err := tx.LockOrder(ctx, t.meta.OrderID)
	if err != nil {
		return err
	}
	if order.CustomerID != t.meta.CustomerID {
		return domain.NotFound("order", t.meta.CustomerID)
	}

	if order.Status != t.target && !domain.CanTransitionTo(order.Status, t.target) {
		log.Warn("order is terminal, ignoring event", "status", order.Status.String(), "target", t.target.String())
		out.ignored = true
		return nil
	}
	if order.Status == t.target && t.target != domain.OrderStatusPlaced {
		out.ignored = true
		return nil
	}

	order.Status = t.target
	if t.target == domain.OrderStatusPlaced {
		if err := r.place(ctx, tx, order, t.address, cart, out); err != nil {
			return err
		}
	}
	if err := tx.UpdateOrder(ctx, order); err != nil {
		return err
	}
	out.order = order
	return nil
}

// place runs the placement side effects: the total is rounded to cents, the
// gateway address replaces the placeholder and the customer's locked cart, if
// any, is emptied.
func (r *Reconciler) place(ctx context.Context, tx repository.Tx, order *domain.Order, address *domain.Address, cart *domain.ShoppingCart, out *outcome) error {
	order.RoundTotal()

	if address != nil {
		overwrite := *address
		overwrite.ID = order.AddressID
		if err := tx.UpdateAddress(ctx, &overwrite); err != nil {
			return err
		}
	}

	out.placed = true
	if cart == nil {
		return nil
	}
	if err := tx.DeleteCartItems(ctx, cart.ID); err != nil {
		return err
	}
	cart.Clear()
	if err := tx.SaveCartTotals(ctx, cart); err != nil {
		return err
	}

	out.cartID = cart.ID
	return nil
}

// sendConfirmation is best effort: failures are logged and never undo the
// placed order.
func (r *Reconciler) sendConfirmation(ctx context.Context, log *slog.Logger, order *domain.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	customer, err := r.repo.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		log.Error("order confirmation skipped, customer lookup failed", "error", err)
		return
	}

	err = r.notifier.Notify(ctx, notify.OrderNotification{
		Kind:       notify.KindOrderPlaced,
		OrderID:    order.ID,
		CustomerID: customer.ID,
		Email:      customer.Email,
		Name:       customer.Name,
		Total:      order.Total.StringFixed(2),
	})
	if err != nil {
		log.Error("order confirmation failed", "error", err)
		return
	}
	log.Info("order confirmation sent")
}
