package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	errs "flexkazi/freelancer-service/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps service errors onto HTTP statuses so handlers stay
// uniform about the failure surface.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrTaskNotFound), errors.Is(err, errs.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errs.ErrTaskConflict), errors.Is(err, errs.ErrAccountExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, errs.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errs.ErrInvalidCredential):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, errs.ErrNotAssignee), errors.Is(err, errs.ErrAccountInactive):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, errs.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, errs.ErrRemoteUnavailable):
		http.Error(w, "Service is temporarily unavailable, please try again.", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
