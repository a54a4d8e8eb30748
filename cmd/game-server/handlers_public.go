package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"spinhub/internal/cache"
	"spinhub/internal/session"
	"spinhub/internal/spin"
	"spinhub/internal/store"

	"github.com/shopspring/decimal"
)

func (a *app) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}

func (a *app) authTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			APIKey    string `json:"apiKey"`
			APISecret string `json:"apiSecret"`
		}
		if err := decodeJSON(r, &body); err != nil || body.APIKey == "" || body.APISecret == "" {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		op, err := a.directory.GetOperatorByAPIKey(r.Context(), body.APIKey)
		if err != nil || store.HashAPIKey(body.APISecret) != op.APISecretHash {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		token := "tok_" + store.NewID()
		if err := a.sub.Set(r.Context(), cache.AccessTokenKey(token), []byte(op.ID), accessTokenTTL); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"accessToken": token,
			"expiresIn":   int(accessTokenTTL.Seconds()),
		})
	}
}

func (a *app) sessionOpenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerID       string          `json:"playerId"`
			GameCode       string          `json:"gameCode"`
			Currency       string          `json:"currency"`
			Mode           string          `json:"mode"`
			InitialBalance decimal.Decimal `json:"initialBalance"`
		}
		if err := decodeJSON(r, &body); err != nil || body.PlayerID == "" || body.GameCode == "" {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if body.Mode == "" {
			body.Mode = string(store.ModeReal)
		}
		params := session.CreateParams{
			Agent:          agentFrom(r.Context()),
			Operator:       operatorFrom(r.Context()),
			PlayerID:       body.PlayerID,
			GameCode:       body.GameCode,
			Currency:       body.Currency,
			Mode:           store.SessionMode(body.Mode),
			InitialBalance: body.InitialBalance,
		}
		gs, err := a.sessions.Create(r.Context(), params)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"sessionToken": gs.Token,
			"launchUrl":    a.cfg.LaunchBaseURL + "/launch/" + gs.GameCode + "?token=" + gs.Token,
		})
	}
}

// spinHandler speaks the historical slot wire format: a form-encoded
// bet and a pull payload with a flat 3x3 icon list.
func (a *app) spinHandler() http.HandlerFunc {
	type pull struct {
		SlotIcons   [spin.GridSize]string `json:"SlotIcons"`
		WinAmount   decimal.Decimal       `json:"WinAmount"`
		ActiveIcons []int                 `json:"ActiveIcons"`
		ActiveLines []int                 `json:"ActiveLines"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_form")
			return
		}
		token := r.PostFormValue("token")
		if token == "" {
			token = bearerToken(r)
		}
		sess, err := a.sessions.Validate(r.Context(), token)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		bet, err := decimal.NewFromString(r.PostFormValue("betamount"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_bet")
			return
		}
		lines, _ := strconv.Atoi(r.PostFormValue("numline"))
		cpl := 1
		if v := r.PostFormValue("cpl"); v != "" {
			cpl, _ = strconv.Atoi(v)
		}

		res, err := a.engine.Settle(r.Context(), spin.Request{
			Session:      sess,
			Bet:          bet,
			Lines:        lines,
			CoinsPerLine: cpl,
			RoundID:      r.PostFormValue("round"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !res.Replayed {
			a.sessions.SyncBalance(r.Context(), sess, res.Balance)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"credit":  res.Balance,
			"pull": pull{
				SlotIcons:   res.Icons,
				WinAmount:   res.Win,
				ActiveIcons: res.ActiveIcons,
				ActiveLines: res.ActiveLines,
			},
			"roundId":       res.RoundID,
			"freeSpinsLeft": res.FreeSpinsLeft,
			"creditPending": res.CreditPending,
		})
	}
}

func (a *app) sessionBalanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		sess, err := a.sessions.Validate(r.Context(), token)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		adapter, err := a.wallets.ForSession(r.Context(), sess)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		balance, stale, err := a.sessions.Balance(r.Context(), sess, adapter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"balance": balance,
			"stale":   stale,
		})
	}
}

func (a *app) sessionCloseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if _, err := a.sessions.Validate(r.Context(), token); err != nil {
			writeDomainError(w, err)
			return
		}
		if err := a.sessions.Close(r.Context(), token); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
