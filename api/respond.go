package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/economy"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    kind,
		},
	})
}

// fail maps err to a status and writes it. A no-op error is reported as a
// successful response with applied set to false.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if economy.IsNoOp(err) {
		writeJSON(w, http.StatusOK, map[string]any{"applied": false, "reason": err.Error()})
		return
	}

	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("api: request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, kind, err.Error())
}

func classify(err error) (int, string) {
	var verr economy.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, economy.ErrInvalidAmount),
		errors.Is(err, economy.ErrInvalidKind),
		errors.Is(err, economy.ErrInvalidFundType),
		errors.Is(err, economy.ErrInvalidInput),
		errors.Is(err, economy.ErrOverAllocated):
		return http.StatusBadRequest, "invalid_request"
	case economy.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, economy.ErrFundExhausted):
		return http.StatusUnprocessableEntity, "fund_exhausted"
	case errors.Is(err, economy.ErrInsufficientBalance),
		errors.Is(err, economy.ErrAccountDisabled),
		errors.Is(err, economy.ErrAccountExists),
		errors.Is(err, economy.ErrAlreadyExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case economy.IsRetryable(err):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return economy.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}
