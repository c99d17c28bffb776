package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"igreposter/pkg/apierr"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// mapDomainError translates sentinel errors into HTTP responses. The
// scraper's typed call errors never reach here on their own; the
// coordinator folds them into ErrNoDataAvailable.
func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, apierr.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, apierr.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, apierr.ErrConfigurationMissing):
		return http.StatusServiceUnavailable, "CONFIGURATION_MISSING", err.Error()
	case errors.Is(err, apierr.ErrNoDataAvailable):
		return http.StatusBadGateway, "NO_DATA_AVAILABLE", "no data available from any scraper backend"
	default:
		var upstream *apierr.Error
		if errors.As(err, &upstream) {
			return http.StatusBadGateway, "UPSTREAM_ERROR", upstream.Message
		}
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code, msg := mapDomainError(err)
	writeError(w, status, code, msg)
}
