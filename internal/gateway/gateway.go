package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Gateway creates hosted checkout sessions at the payment provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
}

type CheckoutRequest struct {
	// ClientReferenceID ties the session back to an order.
	ClientReferenceID string
	// IdempotencyKey makes retried submissions return the same session.
	IdempotencyKey string
	Currency       string
	SuccessURL     string
	CancelURL      string
	LineItems      []LineItem
	Metadata       map[string]string
}

// Fingerprint digests the parts of the request that are not derived from the
// order: currency, redirect URLs and line items. The provider rejects a reused
// idempotency key whose request parameters differ, so a key may only be reused
// while the fingerprint is unchanged.
func (r CheckoutRequest) Fingerprint() string {
	payload, _ := json.Marshal(struct {
		Currency   string
		SuccessURL string
		CancelURL  string
		LineItems  []LineItem
	}{r.Currency, r.SuccessURL, r.CancelURL, r.LineItems})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type LineItem struct {
	Name string
	// UnitAmount is in minor currency units.
	UnitAmount int64
	Quantity   int64
}

type Session struct {
	ID  string
	URL string
}
