package webhook

import (
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completedPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "status": "complete",
      "client_reference_id": "CUST3_17",
      "metadata": {"order_id": "17", "customer_id": "3"},
      "customer_details": {
        "email": "ada@example.com",
        "address": {
          "line1": "1 Infinite Loop",
          "city": "Cupertino",
          "state": "CA",
          "postal_code": "95014",
          "country": "US"
        }
      }
    }
  }
}`

func TestDecode_CheckoutSession(t *testing.T) {
	event, err := Decode([]byte(completedPayload))
	require.NoError(t, err)

	session, ok := event.(domain.CheckoutSessionEvent)
	require.True(t, ok, "got %T", event)
	assert.Equal(t, "evt_1", session.ID)
	assert.Equal(t, "checkout.session.completed", session.Type)
	assert.Equal(t, domain.CheckoutSessionStatusComplete, session.Status)
	assert.Equal(t, domain.EventMetadata{OrderID: 17, CustomerID: 3}, session.Metadata)
	require.NotNil(t, session.CustomerAddress)
	assert.Equal(t, "1 Infinite Loop", session.CustomerAddress.Line1)
	assert.Equal(t, "95014", session.CustomerAddress.PostalCode)
}

func TestDecode_ShippingAddressWins(t *testing.T) {
	payload := `{"id":"evt_2","type":"checkout.session.completed","data":{"object":{
	  "status":"complete",
	  "metadata":{"order_id":"1","customer_id":"2"},
	  "shipping_details":{"address":{"line1":"Ship St 1","country":"DE"}},
	  "customer_details":{"address":{"line1":"Bill St 9","country":"FR"}}}}}`

	event, err := Decode([]byte(payload))
	require.NoError(t, err)
	session := event.(domain.CheckoutSessionEvent)
	assert.Equal(t, "Ship St 1", session.CustomerAddress.Line1)
}

func TestDecode_PaymentStatus(t *testing.T) {
	payload := `{"id":"evt_9","type":"checkout.session.async_payment_failed","data":{"object":{
	  "status":"complete","payment_status":"unpaid",
	  "metadata":{"order_id":"17","customer_id":"3"}}}}`

	event, err := Decode([]byte(payload))
	require.NoError(t, err)

	session := event.(domain.CheckoutSessionEvent)
	assert.Equal(t, domain.EventTypeCheckoutAsyncPaymentFailed, session.Type)
	assert.Equal(t, domain.CheckoutSessionStatusComplete, session.Status)
	assert.Equal(t, domain.CheckoutPaymentStatusUnpaid, session.PaymentStatus)
}

func TestDecode_PaymentIntent(t *testing.T) {
	payload := `{"id":"evt_3","type":"payment_intent.canceled","data":{"object":{
	  "id":"pi_1","object":"payment_intent","status":"canceled",
	  "metadata":{"order_id":"17","customer_id":"3"}}}}`

	event, err := Decode([]byte(payload))
	require.NoError(t, err)

	intent, ok := event.(domain.PaymentIntentEvent)
	require.True(t, ok, "got %T", event)
	assert.Equal(t, domain.PaymentIntentStatusCanceled, intent.Status)
	assert.Equal(t, int64(17), intent.Metadata.OrderID)
}

func TestDecode_UnknownType(t *testing.T) {
	event, err := Decode([]byte(`{"id":"evt_4","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownEvent{ID: "evt_4", Type: "invoice.paid"}, event)
}

func TestDecode_ZeroOrderIDDecodesForRejection(t *testing.T) {
	payload := `{"id":"evt_5","type":"checkout.session.completed","data":{"object":{
	  "status":"complete","metadata":{"order_id":"0","customer_id":"3"}}}}`

	event, err := Decode([]byte(payload))
	require.NoError(t, err)
	assert.False(t, event.(domain.CheckoutSessionEvent).Metadata.Valid())
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{"id":`},
		{"no type", `{"id":"evt_6","data":{"object":{}}}`},
		{"non numeric order id", `{"id":"evt_7","type":"checkout.session.completed","data":{"object":{"metadata":{"order_id":"abc"}}}}`},
		{"object of wrong shape", `{"id":"evt_8","type":"payment_intent.canceled","data":{"object":{"metadata":"oops"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			assert.ErrorIs(t, err, domain.ErrInvalidWebhook)
		})
	}
}
