package checkout

import (
	"context"

	"github.com/google/uuid"
)

// LineItem is one billable bucket on the provider checkout page.
type LineItem struct {
	Name       string
	UnitAmount int
	Quantity   int
}

// ProviderRequest carries everything the payment provider needs to host a
// checkout session for one order.
type ProviderRequest struct {
	OrderID       uuid.UUID
	CustomerEmail string
	Currency      string
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
}

// ProviderSession is the provider's handle on a hosted checkout.
type ProviderSession struct {
	ID          string
	RedirectURL string
}

// PaymentProvider abstracts the hosted-checkout provider so the
// orchestrator can be tested without network calls.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req ProviderRequest) (*ProviderSession, error)
}
