package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"paras/internal/paras"
	"paras/internal/service"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps service-layer failures onto HTTP statuses. Window
// violations become 422 with the full violation list; upstream HTTP errors
// keep their original status so the gateway stays transparent.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *paras.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "validation failed",
			"violations": ve.Violations,
		})
		return
	}

	if he, ok := paras.AsHTTPError(err); ok {
		writeError(w, he.Status, he.Message())
		return
	}

	switch {
	case errors.Is(err, service.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrTransitionNotAllowed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
