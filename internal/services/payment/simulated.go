package payment

import (
	"context"
	"fmt"
	"net/url"

	"ticket-marketplace/utils"
)

// Simulated is a development gateway whose checkout URL is the success URL
// itself, so following it completes the payment.
type Simulated struct{}

func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Provider() Provider {
	return ProviderSimulated
}

func (s *Simulated) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*Session, error) {
	if len(req.LineItems) == 0 {
		return nil, fmt.Errorf("checkout session needs at least one line item")
	}
	code, err := utils.GenerateCode(8)
	if err != nil {
		return nil, err
	}
	id := "sim_" + code

	u, err := url.Parse(req.SuccessURL)
	if err != nil {
		return nil, fmt.Errorf("invalid success url: %w", err)
	}
	q := u.Query()
	q.Set("session_id", id)
	u.RawQuery = q.Encode()

	return &Session{ID: id, URL: u.String()}, nil
}
