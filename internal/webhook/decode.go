package webhook

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stripe/stripe-go/v76"
)

const (
	checkoutSessionPrefix = "checkout.session."
	paymentIntentPrefix   = "payment_intent."
)

// Decode parses a raw gateway payload into one of the domain event variants.
// Structurally broken payloads fail with domain.ErrInvalidWebhook; event types
// that are not handled decode to domain.UnknownEvent.
func Decode(payload []byte) (domain.GatewayEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.InvalidWebhook("malformed event payload: %v", err)
	}
	if event.Type == "" {
		return nil, domain.InvalidWebhook("event %q has no type", event.ID)
	}

	eventType := string(event.Type)
	switch {
	case strings.HasPrefix(eventType, checkoutSessionPrefix):
		return decodeCheckoutSession(event)
	case strings.HasPrefix(eventType, paymentIntentPrefix):
		return decodePaymentIntent(event)
	}
	return domain.UnknownEvent{ID: event.ID, Type: eventType}, nil
}

func decodeCheckoutSession(event stripe.Event) (domain.GatewayEvent, error) {
	var session stripe.CheckoutSession
	if err := unmarshalObject(event, &session); err != nil {
		return nil, err
	}
	meta, err := parseMetadata(session.Metadata)
	if err != nil {
		return nil, err
	}

	decoded := domain.CheckoutSessionEvent{
		ID:            event.ID,
		Type:          string(event.Type),
		Status:        string(session.Status),
		PaymentStatus: string(session.PaymentStatus),
		Metadata:      meta,
	}
	switch {
	case session.ShippingDetails != nil && session.ShippingDetails.Address != nil:
		decoded.CustomerAddress = toAddress(session.ShippingDetails.Address)
	case session.CustomerDetails != nil && session.CustomerDetails.Address != nil:
		decoded.CustomerAddress = toAddress(session.CustomerDetails.Address)
	}
	return decoded, nil
}

func decodePaymentIntent(event stripe.Event) (domain.GatewayEvent, error) {
	var intent stripe.PaymentIntent
	if err := unmarshalObject(event, &intent); err != nil {
		return nil, err
	}
	meta, err := parseMetadata(intent.Metadata)
	if err != nil {
		return nil, err
	}
	return domain.PaymentIntentEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		Status:   string(intent.Status),
		Metadata: meta,
	}, nil
}

func unmarshalObject(event stripe.Event, dst any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return domain.InvalidWebhook("event %s has no data object", event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, dst); err != nil {
		return domain.InvalidWebhook("event %s has a malformed data object: %v", event.ID, err)
	}
	return nil
}

// parseMetadata reads order_id and customer_id. Absent keys decode to zero and
// are rejected later as non-positive ids.
func parseMetadata(m map[string]string) (domain.EventMetadata, error) {
	var meta domain.EventMetadata
	var err error
	if meta.OrderID, err = parseID(m, "order_id"); err != nil {
		return meta, err
	}
	if meta.CustomerID, err = parseID(m, "customer_id"); err != nil {
		return meta, err
	}
	return meta, nil
}

func parseID(m map[string]string, key string) (int64, error) {
	raw, ok := m[key]
	if !ok || raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, domain.InvalidWebhook("metadata %s=%q is not an integer", key, raw)
	}
	return id, nil
}

func toAddress(a *stripe.Address) *domain.Address {
	return &domain.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
