package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"spinhub/internal/pool"
	"spinhub/internal/session"
	"spinhub/internal/spin"
	"spinhub/internal/store"
	"spinhub/internal/wallet"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// writeDomainError maps the error taxonomy onto status codes and the
// {success:false, message} wire shape.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *spin.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Reason)
	case errors.Is(err, session.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, "invalid_session")
	case errors.Is(err, session.ErrGameNotAllowed):
		writeError(w, http.StatusForbidden, "game_not_allowed")
	case errors.Is(err, session.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, "invalid_mode")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient_funds")
	case errors.Is(err, wallet.ErrRemoteTimeout):
		writeError(w, http.StatusBadGateway, "remote_wallet_timeout")
	case errors.Is(err, wallet.ErrRemoteRejected):
		writeError(w, http.StatusBadGateway, "remote_wallet_error")
	case errors.Is(err, pool.ErrInsufficientPoolBalance):
		writeError(w, http.StatusConflict, "insufficient_pool_balance")
	case errors.Is(err, pool.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, pool.ErrInvalidPhase):
		writeError(w, http.StatusBadRequest, "invalid_phase")
	case errors.Is(err, pool.ErrPoolBusy):
		writeError(w, http.StatusConflict, "pool_busy")
	case errors.Is(err, spin.ErrLockContention):
		writeError(w, http.StatusConflict, "lock_contention")
	case errors.Is(err, spin.ErrPendingCredit):
		writeError(w, http.StatusConflict, "credit_pending")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}
