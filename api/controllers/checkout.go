package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stagepass/stagepass-backend/api/responses"
	"github.com/stagepass/stagepass-backend/api/validators"
	checkoutsvc "github.com/stagepass/stagepass-backend/internal/checkout"
	"github.com/stagepass/stagepass-backend/internal/pricing"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
)

type checkoutRequest struct {
	SessionID     uuid.UUID         `json:"session_id" validate:"required,uuid4"`
	Quantities    checkoutQuantites `json:"quantities" validate:"required"`
	Codes         []string          `json:"codes" validate:"omitempty,max=20,dive,min=1"`
	CustomerName  string            `json:"customer_name" validate:"required,min=1,max=120"`
	CustomerEmail string            `json:"customer_email" validate:"required,email"`
}

type checkoutQuantites struct {
	General  int `json:"general" validate:"min=0"`
	Reserved int `json:"reserved" validate:"min=0"`
	Vip1     int `json:"vip1" validate:"min=0"`
	Vip2     int `json:"vip2" validate:"min=0"`
}

// Checkout creates an order and either returns a provider redirect or, for
// zero-total orders, the already-completed order reference.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), checkoutsvc.Input{
			SessionID: payload.SessionID,
			Quantities: pricing.Quantities{
				General:  payload.Quantities.General,
				Reserved: payload.Quantities.Reserved,
				Vip1:     payload.Quantities.Vip1,
				Vip2:     payload.Quantities.Vip2,
			},
			Codes:         payload.Codes,
			CustomerName:  payload.CustomerName,
			CustomerEmail: payload.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
