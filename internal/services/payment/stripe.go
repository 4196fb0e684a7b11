package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"ticket-marketplace/utils"
)

const checkoutCompleted = "checkout.session.completed"

// Stripe opens hosted Stripe Checkout sessions.
type Stripe struct {
	api           *client.API
	currency      string
	webhookSecret string
	cb            *gobreaker.CircuitBreaker
}

func NewStripe(secretKey, webhookSecret, currency string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &Stripe{
		api:           api,
		currency:      currency,
		webhookSecret: webhookSecret,
		cb:            utils.NewBreaker("stripe", 30*time.Second),
	}
}

func (s *Stripe) Provider() Provider {
	return ProviderStripe
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*Session, error) {
	params := checkoutParams(req, s.currency)
	params.Context = ctx

	sess, err := utils.ExecuteWithBreaker(s.cb, func() (*stripe.CheckoutSession, error) {
		return s.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) VerifyWebhook(payload []byte, signature string) (*CompletedCheckout, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify stripe webhook: %w", err)
	}
	if event.Type != checkoutCompleted {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &CompletedCheckout{SessionID: sess.ID, Metadata: sess.Metadata}, nil
}

func checkoutParams(req *CheckoutRequest, currency string) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Description),
				},
				UnitAmount: stripe.Int64(minorUnits(item.UnitAmount)),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

// minorUnits converts a decimal amount to cents.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
