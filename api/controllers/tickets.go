package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stagepass/stagepass-backend/api/responses"
	"github.com/stagepass/stagepass-backend/internal/checkin"
	"github.com/stagepass/stagepass-backend/internal/tickets"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
)

// TicketVerify is the read-only door lookup. Staff can re-scan freely; the
// ticket is never mutated here.
func TicketVerify(svc checkin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "check-in service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		view, err := svc.Verify(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// TicketCheckIn commits the admission. A lost race returns ALREADY_USED with
// the winning admission's view attached so the door shows who got in.
func TicketCheckIn(svc checkin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "check-in service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		view, err := svc.CheckIn(r.Context(), code)
		if err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeAlreadyUsed && view != nil {
				typed.WithDetails(map[string]any{"ticket": view})
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// TicketQR renders the ticket credential as a PNG for wallet screenshots.
func TicketQR(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		size := 0
		if raw := r.URL.Query().Get("size"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 64 || parsed > 1024 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "size must be between 64 and 1024"))
				return
			}
			size = parsed
		}

		png, err := svc.QRImage(r.Context(), code, size)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(png); err != nil && logg != nil {
			logg.Error(r.Context(), "write qr response", err)
		}
	}
}
