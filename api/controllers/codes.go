package controllers

import (
	"net/http"

	"github.com/stagepass/stagepass-backend/api/responses"
	"github.com/stagepass/stagepass-backend/api/validators"
	"github.com/stagepass/stagepass-backend/internal/codes"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
)

type codesValidateRequest struct {
	Codes []string `json:"codes" validate:"required,min=1,max=20,dive,min=1"`
}

// CodesValidate reports existence and usage per code without redeeming
// anything. The purchase form calls this while the buyer types.
func CodesValidate(svc codes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "codes service unavailable"))
			return
		}

		var payload codesValidateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.ValidateBatch(r.Context(), payload.Codes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, results)
	}
}
