// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/isp-broadcast/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP: validation 400, throttling 429, remote rejection 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, appErrors.ErrBusy), errors.Is(err, appErrors.ErrInvalidTransition):
		return http.StatusConflict
	case appErrors.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, appErrors.ErrStatsNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, appErrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case appErrors.IsRemote(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := map[string]interface{}{"error": err.Error()}
	if status == http.StatusTooManyRequests {
		body["transient"] = true
	}
	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return appErrors.NewValidation("body", err)
	}
	return nil
}
