package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stagepass/stagepass-backend/api/responses"
	"github.com/stagepass/stagepass-backend/api/validators"
	"github.com/stagepass/stagepass-backend/internal/codes"
	"github.com/stagepass/stagepass-backend/pkg/db/models"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
)

type codeIssueRequest struct {
	Code        string     `json:"code" validate:"omitempty,min=4,max=40"`
	PerformerID *uuid.UUID `json:"performer_id,omitempty" validate:"omitempty,uuid4"`
	SessionID   *uuid.UUID `json:"session_id,omitempty" validate:"omitempty,uuid4"`
}

type codeBatchRequest struct {
	Count       int        `json:"count" validate:"required,min=1,max=1000"`
	PerformerID *uuid.UUID `json:"performer_id,omitempty" validate:"omitempty,uuid4"`
	SessionID   *uuid.UUID `json:"session_id,omitempty" validate:"omitempty,uuid4"`
}

type codeResponse struct {
	ID               uuid.UUID  `json:"id"`
	Code             string     `json:"code"`
	IsUsed           bool       `json:"is_used"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	RedeemingOrderID *uuid.UUID `json:"redeeming_order_id,omitempty"`
	PerformerID      *uuid.UUID `json:"performer_id,omitempty"`
	SessionID        *uuid.UUID `json:"session_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func AdminCodeIssue(svc codes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "codes service unavailable"))
			return
		}

		var payload codeIssueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Issue(r.Context(), codes.IssueInput{
			Code:        payload.Code,
			PerformerID: payload.PerformerID,
			SessionID:   payload.SessionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCodeResponse(record))
	}
}

func AdminCodeIssueBatch(svc codes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "codes service unavailable"))
			return
		}

		var payload codeBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.IssueBatch(r.Context(), codes.BatchIssueInput{
			Count:       payload.Count,
			PerformerID: payload.PerformerID,
			SessionID:   payload.SessionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]codeResponse, 0, len(records))
		for i := range records {
			out = append(out, newCodeResponse(&records[i]))
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

func AdminCodeList(svc codes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "codes service unavailable"))
			return
		}

		filter, err := adminCodeFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]codeResponse, 0, len(records))
		for i := range records {
			out = append(out, newCodeResponse(&records[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func adminCodeFilter(r *http.Request) (codes.ListFilter, error) {
	var filter codes.ListFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("used")); raw != "" {
		switch raw {
		case "true":
			used := true
			filter.Used = &used
		case "false":
			used := false
			filter.Used = &used
		default:
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "used must be true or false")
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("performer_id")); raw != "" {
		performerID, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid performer id")
		}
		filter.PerformerID = &performerID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("session_id")); raw != "" {
		sessionID, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session id")
		}
		filter.SessionID = &sessionID
	}

	limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
	if err != nil {
		return filter, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset
	return filter, nil
}

func newCodeResponse(record *models.ExchangeCode) codeResponse {
	return codeResponse{
		ID:               record.ID,
		Code:             record.Code,
		IsUsed:           record.IsUsed,
		UsedAt:           record.UsedAt,
		RedeemingOrderID: record.RedeemingOrderID,
		PerformerID:      record.PerformerID,
		SessionID:        record.SessionID,
		CreatedAt:        record.CreatedAt,
	}
}
