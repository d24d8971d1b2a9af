package checkout

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/stagepass/stagepass-backend/pkg/stripe"
)

type stripeProvider struct {
	client *pkgstripe.Client
}

// NewStripeProvider wraps the Stripe client behind the PaymentProvider port.
func NewStripeProvider(client *pkgstripe.Client) PaymentProvider {
	if client == nil {
		return nil
	}
	return &stripeProvider{client: client}
}

func (p *stripeProvider) CreateCheckoutSession(ctx context.Context, req ProviderRequest) (*ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		CustomerEmail: stripe.String(req.CustomerEmail),
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID.String())

	currency := req.Currency
	if currency == "" {
		currency = p.client.Currency()
	}
	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(int64(item.UnitAmount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	created, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating stripe checkout session: %w", err)
	}
	return &ProviderSession{ID: created.ID, RedirectURL: created.URL}, nil
}
