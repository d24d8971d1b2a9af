package checkin

import (
	"context"
	"fmt"

	"github.com/stagepass/stagepass-backend/internal/tickets"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
	"github.com/stagepass/stagepass-backend/pkg/metrics"
)

// Service is the server side of the door flow. Verify never mutates;
// CheckIn owns the one-shot admission flip.
type Service interface {
	Verify(ctx context.Context, code string) (*tickets.TicketView, error)
	CheckIn(ctx context.Context, code string) (*tickets.TicketView, error)
}

type service struct {
	tickets tickets.Service
	logg    *logger.Logger
	metrics *metrics.TicketingMetrics
}

// NewService builds the check-in service with the required dependencies.
func NewService(ticketsSvc tickets.Service, logg *logger.Logger, ticketing *metrics.TicketingMetrics) (Service, error) {
	if ticketsSvc == nil {
		return nil, fmt.Errorf("tickets service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tickets: ticketsSvc, logg: logg, metrics: ticketing}, nil
}

func (s *service) Verify(ctx context.Context, code string) (*tickets.TicketView, error) {
	return s.tickets.Verify(ctx, code)
}

// CheckIn flips the ticket to used. The view is returned even when the flip
// loses the race, so the door can show who was already admitted.
func (s *service) CheckIn(ctx context.Context, code string) (*tickets.TicketView, error) {
	view, err := s.tickets.Admit(ctx, code)
	if err != nil {
		switch typed := pkgerrors.As(err); {
		case typed != nil && typed.Code() == pkgerrors.CodeAlreadyUsed:
			s.metrics.IncCheckin("already_used")
		case typed != nil && typed.Code() == pkgerrors.CodeNotFound:
			s.metrics.IncCheckin("unknown")
		default:
			s.metrics.IncCheckin("failure")
		}
		return view, err
	}
	s.logg.Info(ctx, "ticket admitted")
	s.metrics.IncCheckin("success")
	return view, nil
}
