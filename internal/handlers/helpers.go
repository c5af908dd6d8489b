package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agentwiki/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP status codes.
// Returns false if the error was not a recognized service error, in which
// case the caller logs it and answers 500.
func writeServiceError(w http.ResponseWriter, err error) bool {
	var status int
	switch {
	case errors.Is(err, services.ErrTxNotFound),
		errors.Is(err, services.ErrProposalNotFound),
		errors.Is(err, services.ErrReceiverNotFound),
		errors.Is(err, services.ErrTargetNotFound),
		errors.Is(err, services.ErrArticleNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateTransaction),
		errors.Is(err, services.ErrDuplicateVote),
		errors.Is(err, services.ErrWalletAlreadyLinked),
		errors.Is(err, services.ErrPendingSlashExists):
		status = http.StatusConflict
	case errors.Is(err, services.ErrSelfVoteForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrTxFailed),
		errors.Is(err, services.ErrTxMismatch),
		errors.Is(err, services.ErrNoWalletLinked),
		errors.Is(err, services.ErrSelfPayment),
		errors.Is(err, services.ErrReceiverInactive),
		errors.Is(err, services.ErrReceiverNoWallet),
		errors.Is(err, services.ErrAlreadyDecided),
		errors.Is(err, services.ErrTargetBanned),
		errors.Is(err, services.ErrSelfReport):
		status = http.StatusBadRequest
	default:
		return false
	}
	writeError(w, status, err.Error())
	return true
}
