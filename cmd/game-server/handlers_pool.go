package main

import (
	"net/http"
	"strconv"
	"time"

	"spinhub/internal/store"

	"github.com/shopspring/decimal"
)

func (a *app) poolHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent := agentFrom(r.Context())
		p, err := a.pools.GetOrCreate(r.Context(), agent.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "pool": p})
	}
}

func (a *app) poolLimitsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent := agentFrom(r.Context())
		bet := decimal.Zero
		if raw := r.URL.Query().Get("bet"); raw != "" {
			var err error
			if bet, err = decimal.NewFromString(raw); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_bet")
				return
			}
		}
		p, err := a.pools.GetOrCreate(r.Context(), agent.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"limits":  a.pools.EffectiveLimits(p, bet),
		})
	}
}

func (a *app) poolDepositHandler() http.HandlerFunc {
	return a.poolMoveHandler(false)
}

func (a *app) poolWithdrawHandler() http.HandlerFunc {
	return a.poolMoveHandler(true)
}

func (a *app) poolMoveHandler(withdraw bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent := agentFrom(r.Context())
		var body struct {
			Amount decimal.Decimal `json:"amount"`
			Note   string          `json:"note"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		move := a.pools.Deposit
		if withdraw {
			move = a.pools.Withdraw
		}
		p, err := move(r.Context(), agent.ID, body.Amount, body.Note)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "pool": p})
	}
}

func (a *app) poolPhaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent := agentFrom(r.Context())
		var body struct {
			Phase string `json:"phase"`
			Auto  *bool  `json:"auto"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		var (
			p   *store.AgentPool
			err error
		)
		switch {
		case body.Auto != nil:
			p, err = a.pools.SetAutoPhase(r.Context(), agent.ID, *body.Auto)
		case body.Phase != "":
			p, err = a.pools.SetPhase(r.Context(), agent.ID, store.PoolPhase(body.Phase))
		default:
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "pool": p})
	}
}

func (a *app) poolTransactionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent := agentFrom(r.Context())
		p, err := a.pools.GetOrCreate(r.Context(), agent.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		q := r.URL.Query()
		f := store.PoolTransactionFilter{Type: store.PoolTransactionType(q.Get("type"))}
		if raw := q.Get("start"); raw != "" {
			t, perr := time.Parse("2006-01-02", raw)
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_start_date")
				return
			}
			f.StartDate = &t
		}
		if raw := q.Get("end"); raw != "" {
			t, perr := time.Parse("2006-01-02", raw)
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_end_date")
				return
			}
			f.EndDate = &t
		}
		f.Limit, _ = strconv.Atoi(q.Get("limit"))
		f.Offset, _ = strconv.Atoi(q.Get("offset"))

		rows, total, err := a.poolLog.ListPoolTransactions(r.Context(), p.ID, f)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"transactions": rows,
			"total":        total,
		})
	}
}
