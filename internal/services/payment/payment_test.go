package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), minorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(5000), minorUnits(decimal.NewFromInt(50)))
	assert.Equal(t, int64(101), minorUnits(decimal.RequireFromString("1.005")))
}

func TestCheckoutParams(t *testing.T) {
	params := checkoutParams(&CheckoutRequest{
		LineItems: []LineItem{
			{Description: "VIP", UnitAmount: decimal.RequireFromString("120.50"), Quantity: 2},
		},
		SuccessURL: "https://shop.test/verify?success=true&orderId=o1",
		CancelURL:  "https://shop.test/verify?success=false&orderId=o1",
		Metadata:   map[string]string{"orderId": "o1"},
	}, "usd")

	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *params.Mode)
	require.Len(t, params.LineItems, 1)
	item := params.LineItems[0]
	assert.Equal(t, int64(12050), *item.PriceData.UnitAmount)
	assert.Equal(t, "usd", *item.PriceData.Currency)
	assert.Equal(t, "VIP", *item.PriceData.ProductData.Name)
	assert.Equal(t, int64(2), *item.Quantity)
	assert.Equal(t, "o1", params.Metadata["orderId"])
}

func signStripePayload(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripe_VerifyWebhook(t *testing.T) {
	s := NewStripe("sk_test", "whsec_test", "usd")

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session", "metadata": {"ticketId": "t1"}}}
	}`, stripe.APIVersion))

	completed, err := s.VerifyWebhook(payload, signStripePayload("whsec_test", payload, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, completed)
	assert.Equal(t, "cs_test_1", completed.SessionID)
	assert.Equal(t, "t1", completed.Metadata["ticketId"])

	_, err = s.VerifyWebhook(payload, signStripePayload("whsec_other", payload, time.Now()))
	assert.Error(t, err)
}

func TestStripe_VerifyWebhook_IgnoresOtherEvents(t *testing.T) {
	s := NewStripe("sk_test", "whsec_test", "usd")
	payload := []byte(fmt.Sprintf(`{"id":"evt_2","object":"event","api_version":%q,"type":"charge.refunded","data":{"object":{}}}`, stripe.APIVersion))

	completed, err := s.VerifyWebhook(payload, signStripePayload("whsec_test", payload, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, completed)
}

func TestSimulated_CreateCheckoutSession(t *testing.T) {
	sess, err := NewSimulated().CreateCheckoutSession(context.Background(), &CheckoutRequest{
		LineItems:  []LineItem{{Description: "Standard", UnitAmount: decimal.NewFromInt(10), Quantity: 1}},
		SuccessURL: "http://localhost:5173/verify?success=true&orderId=o1",
	})
	require.NoError(t, err)
	assert.Regexp(t, "^sim_[0-9A-F]{16}$", sess.ID)
	assert.Contains(t, sess.URL, "orderId=o1")
	assert.Contains(t, sess.URL, "session_id="+sess.ID)

	_, err = NewSimulated().CreateCheckoutSession(context.Background(), &CheckoutRequest{})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewFactory())

	_, err := r.Primary()
	assert.Error(t, err)

	require.NoError(t, r.Register(context.Background(), Config{Provider: ProviderSimulated}))
	require.NoError(t, r.Register(context.Background(), Config{Provider: ProviderStripe, SecretKey: "sk", WebhookSecret: "wh", Currency: "usd"}))
	assert.Error(t, r.Register(context.Background(), Config{Provider: "paypal"}))

	primary, err := r.Primary()
	require.NoError(t, err)
	assert.Equal(t, ProviderSimulated, primary.Provider())
	assert.Len(t, r.Verifiers(), 1)
}
