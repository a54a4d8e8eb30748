package main

import (
	"expvar"
	"log/slog"
	"net/http"

	"spinhub/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

func newRouter(a *app) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", a.healthHandler())

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())
		r.Use(a.rateLimitMiddleware())

		r.Post("/auth/token", a.authTokenHandler())
		r.Post("/spin", a.spinHandler())
		r.Get("/session/balance", a.sessionBalanceHandler())
		r.Post("/session/close", a.sessionCloseHandler())

		r.Group(func(r chi.Router) {
			r.Use(a.callerAuthMiddleware())
			r.Post("/session/open", a.sessionOpenHandler())
		})

		r.Group(func(r chi.Router) {
			r.Use(a.agentAuthMiddleware())
			r.Get("/pool", a.poolHandler())
			r.Get("/pool/limits", a.poolLimitsHandler())
			r.Post("/pool/deposit", a.poolDepositHandler())
			r.Post("/pool/withdraw", a.poolWithdrawHandler())
			r.Post("/pool/phase", a.poolPhaseHandler())
			r.Get("/pool/transactions", a.poolTransactionsHandler())
		})

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(a.cfg.AdminAPIKey))
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func apiLogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
					slog.String("path", req.URL.Path),
				}
			},
		},
	)
}

// rateLimitMiddleware keys on the API key when one is presented,
// falling back to the client address.
func (a *app) rateLimitMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := bearerToken(r)
			if caller == "" {
				caller = r.RemoteAddr
			}
			if !a.limiter.Allow(r.Context(), caller) {
				writeError(w, http.StatusTooManyRequests, "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
