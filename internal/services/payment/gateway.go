package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider identifies a checkout gateway.
type Provider string

const (
	ProviderStripe    Provider = "stripe"
	ProviderSimulated Provider = "simulated"
)

type LineItem struct {
	Description string          `json:"description"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
	Quantity    int64           `json:"quantity"`
}

// CheckoutRequest describes a hosted checkout session.
type CheckoutRequest struct {
	LineItems  []LineItem        `json:"line_items"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CompletedCheckout is a verified gateway report that a session was paid.
type CompletedCheckout struct {
	SessionID string
	Metadata  map[string]string
}

// Gateway opens hosted checkout sessions.
type Gateway interface {
	Provider() Provider
	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*Session, error)
}

// WebhookVerifier is implemented by gateways that push signed completion events.
type WebhookVerifier interface {
	// VerifyWebhook returns nil, nil for authentic events that are not completions.
	VerifyWebhook(payload []byte, signature string) (*CompletedCheckout, error)
}
