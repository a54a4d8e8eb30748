package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spinhub/internal/ratelimit"

	"github.com/shopspring/decimal"
)

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func openSession(t *testing.T, h http.Handler, balance string) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/session/open", "key_agent", map[string]any{
		"playerId":       "p1",
		"gameCode":       "fruit-blast",
		"currency":       "USD",
		"initialBalance": balance,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("open session: %d %s", w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["sessionToken"].(string)
	if !strings.HasPrefix(token, "sess_") {
		t.Fatalf("bad session token %q", token)
	}
	return token
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env.app)

	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}

	env.app.ping = func(context.Context) error { return errors.New("down") }
	w = doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz degraded = %d", w.Code)
	}
}

func TestSessionOpenRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env.app)
	w := doJSON(t, r, http.MethodPost, "/api/session/open", "", map[string]any{
		"playerId": "p1", "gameCode": "g", "currency": "USD",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSpinEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.pools.Deposit(context.Background(), "ag_1", decimal.NewFromInt(1000), "seed"); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	r := newRouter(env.app)
	token := openSession(t, r, "100")

	form := url.Values{
		"token":     {token},
		"betamount": {"10"},
		"numline":   {"3"},
		"cpl":       {"1"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/spin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("spin = %d %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	pull, ok := body["pull"].(map[string]any)
	if !ok {
		t.Fatalf("no pull payload: %v", body)
	}
	icons, ok := pull["SlotIcons"].([]any)
	if !ok || len(icons) != 9 {
		t.Fatalf("SlotIcons = %v", pull["SlotIcons"])
	}
	win, err := decimal.NewFromString(pull["WinAmount"].(string))
	if err != nil {
		t.Fatalf("WinAmount: %v", err)
	}
	credit, err := decimal.NewFromString(body["credit"].(string))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	want := decimal.NewFromInt(100).Sub(decimal.NewFromInt(10)).Add(win)
	if !credit.Equal(want) {
		t.Fatalf("credit = %s, want %s (win %s)", credit, want, win)
	}

	bal, _ := env.ledger.GetPlayerBalance(context.Background(), "ag_1", "p1")
	if !bal.Equal(credit) {
		t.Fatalf("ledger = %s, credit = %s", bal, credit)
	}
}

func TestSpinRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env.app)

	form := url.Values{"token": {"sess_bogus"}, "betamount": {"10"}, "numline": {"3"}, "cpl": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/spin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSpinRejectsBadBet(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env.app)
	token := openSession(t, r, "100")

	form := url.Values{"token": {token}, "betamount": {"abc"}, "numline": {"3"}, "cpl": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/spin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
}

func TestOperatorTokenFlow(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env.app)

	w := doJSON(t, r, http.MethodPost, "/api/auth/token", "", map[string]any{
		"apiKey": "key_operator", "apiSecret": "s3cret",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("auth token = %d %s", w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["accessToken"].(string)
	if !strings.HasPrefix(token, "tok_") {
		t.Fatalf("bad access token %q", token)
	}

	w = doJSON(t, r, http.MethodPost, "/api/session/open", token, map[string]any{
		"playerId": "p9", "gameCode": "fruit-blast", "currency": "IDR", "initialBalance": "50",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("operator session open = %d %s", w.Code, w.Body.String())
	}

	// Wrong secret is refused.
	w = doJSON(t, r, http.MethodPost, "/api/auth/token", "", map[string]any{
		"apiKey": "key_operator", "apiSecret": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad secret = %d", w.Code)
	}
}

func TestPoolEndpoints(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env.app)

	if w := doJSON(t, r, http.MethodGet, "/api/pool", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated pool read = %d", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/api/pool/deposit", "key_agent", map[string]any{
		"amount": "500", "note": "float",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("deposit = %d %s", w.Code, w.Body.String())
	}
	poolBody := decodeBody(t, w)["pool"].(map[string]any)
	if got := decimal.RequireFromString(poolBody["balance"].(string)); !got.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("balance = %s, want 500", got)
	}

	w = doJSON(t, r, http.MethodPost, "/api/pool/withdraw", "key_agent", map[string]any{
		"amount": "600",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("overdraw withdraw = %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/pool/phase", "key_agent", map[string]any{
		"phase": "release",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set phase = %d %s", w.Code, w.Body.String())
	}
	poolBody = decodeBody(t, w)["pool"].(map[string]any)
	if poolBody["currentPhase"].(string) != "release" || poolBody["isAutoPhase"].(bool) {
		t.Fatalf("phase state = %v", poolBody)
	}

	w = doJSON(t, r, http.MethodGet, "/api/pool/limits?bet=10", "key_agent", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("limits = %d", w.Code)
	}
	limits := decodeBody(t, w)["limits"].(map[string]any)
	// The 0.10 risk cap on a 500 balance binds before the 100x release
	// multiplier on a 10 bet.
	if got := decimal.RequireFromString(limits["maxPayout"].(string)); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("maxPayout = %s, want 50", got)
	}

	w = doJSON(t, r, http.MethodGet, "/api/pool/transactions?type=deposit", "key_agent", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("transactions = %d", w.Code)
	}
	if total := decodeBody(t, w)["total"].(float64); total != 1 {
		t.Fatalf("total = %v, want 1", total)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t)
	env.app.limiter = ratelimit.New(env.app.sub, 2, time.Minute)
	r := newRouter(env.app)

	for i := 0; i < 2; i++ {
		if w := doJSON(t, r, http.MethodGet, "/api/pool", "key_agent", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
	if w := doJSON(t, r, http.MethodGet, "/api/pool", "key_agent", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", w.Code)
	}
}

func TestAdminDebugVars(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env.app)

	if w := doJSON(t, r, http.MethodGet, "/api/debug/vars", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no key = %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/debug/vars", "admin-key", nil); w.Code != http.StatusOK {
		t.Fatalf("admin key = %d", w.Code)
	}
}
