package domain

const (
	CheckoutSessionStatusComplete = "complete"
	CheckoutSessionStatusExpired  = "expired"
	CheckoutSessionStatusOpen     = "open"
	PaymentIntentStatusCanceled   = "canceled"

	// A session is complete once the customer submits it, but an asynchronous
	// payment method can still be unpaid at that point.
	CheckoutPaymentStatusPaid              = "paid"
	CheckoutPaymentStatusUnpaid            = "unpaid"
	CheckoutPaymentStatusNoPaymentRequired = "no_payment_required"

	EventTypeCheckoutAsyncPaymentFailed = "checkout.session.async_payment_failed"
)

// EventMetadata is the only link between a gateway transaction and a local order.
type EventMetadata struct {
	OrderID    int64
	CustomerID int64
}

func (m EventMetadata) Valid() bool {
	return m.OrderID > 0 && m.CustomerID > 0
}

// GatewayEvent is one of CheckoutSessionEvent, PaymentIntentEvent or UnknownEvent.
type GatewayEvent interface {
	EventID() string
	EventType() string
	gatewayEvent()
}

type CheckoutSessionEvent struct {
	ID              string
	Type            string
	Status          string
	PaymentStatus   string
	Metadata        EventMetadata
	CustomerAddress *Address
}

type PaymentIntentEvent struct {
	ID       string
	Type     string
	Status   string
	Metadata EventMetadata
}

type UnknownEvent struct {
	ID   string
	Type string
}

func (e CheckoutSessionEvent) EventID() string   { return e.ID }
func (e CheckoutSessionEvent) EventType() string { return e.Type }
func (CheckoutSessionEvent) gatewayEvent()       {}

func (e PaymentIntentEvent) EventID() string   { return e.ID }
func (e PaymentIntentEvent) EventType() string { return e.Type }
func (PaymentIntentEvent) gatewayEvent()       {}

func (e UnknownEvent) EventID() string   { return e.ID }
func (e UnknownEvent) EventType() string { return e.Type }
func (UnknownEvent) gatewayEvent()       {}
