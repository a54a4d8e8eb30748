package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"spinhub/internal/cache"
	"spinhub/internal/store"
)

const accessTokenTTL = time.Hour

type agentContextKey struct{}
type operatorContextKey struct{}

// directory is the credential-lookup slice of the store.
type directory interface {
	GetAgentByAPIKey(ctx context.Context, apiKey string) (*store.Agent, error)
	GetOperatorByAPIKey(ctx context.Context, apiKey string) (*store.Operator, error)
	GetOperatorByID(ctx context.Context, id string) (*store.Operator, error)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return auth[len(prefix):]
}

func (a *app) agentAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerToken(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing_api_key")
				return
			}
			agent, err := a.directory.GetAgentByAPIKey(r.Context(), key)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_api_key")
				return
			}
			ctx := context.WithValue(r.Context(), agentContextKey{}, agent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// callerAuthMiddleware accepts either an agent API key or an operator
// access token issued by /api/auth/token.
func (a *app) callerAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r)
			if tok == "" {
				writeError(w, http.StatusUnauthorized, "missing_credentials")
				return
			}
			if agent, err := a.directory.GetAgentByAPIKey(r.Context(), tok); err == nil {
				ctx := context.WithValue(r.Context(), agentContextKey{}, agent)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if opID, err := a.sub.Get(r.Context(), cache.AccessTokenKey(tok)); err == nil {
				op, oerr := a.directory.GetOperatorByID(r.Context(), string(opID))
				if oerr == nil {
					ctx := context.WithValue(r.Context(), operatorContextKey{}, op)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
		})
	}
}

func adminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" || bearerToken(r) != adminKey {
				writeError(w, http.StatusUnauthorized, "invalid_admin_key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func agentFrom(ctx context.Context) *store.Agent {
	agent, _ := ctx.Value(agentContextKey{}).(*store.Agent)
	return agent
}

func operatorFrom(ctx context.Context) *store.Operator {
	op, _ := ctx.Value(operatorContextKey{}).(*store.Operator)
	return op
}
