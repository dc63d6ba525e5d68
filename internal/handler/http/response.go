package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/errors"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/logger"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/validator"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps an error to its HTTP response. AppError carries its own
// status and client-safe message; anything unrecognized becomes an opaque 500
// and is logged server-side with full detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  validationErr.Fields(),
		}})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
				slog.String("error", appErr.Error()),
			)
		}
		writeJSON(w, appErr.Status, errorResponse{Error: errorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
		}})
		return
	}

	logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}})
}

// decodeJSON parses the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.InvalidInput("invalid request body")
	}
	return nil
}
