package notifications

import (
	"context"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
)

// Notifier sends the purchase confirmation after fulfillment commits.
// Failure is non-fatal: the financial transaction has already committed and
// must never be rolled back or retried because mail bounced.
type Notifier interface {
	SendConfirmation(ctx context.Context, order *models.Order, tickets []models.Ticket) error
}

// Noop is used when SMTP is not configured (local dev, tests).
type Noop struct{}

// SendConfirmation does nothing.
func (Noop) SendConfirmation(context.Context, *models.Order, []models.Ticket) error {
	return nil
}
