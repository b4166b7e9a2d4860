package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/inbound/internal/pkg/httputil"
	"github.com/ignite/inbound/internal/service/domains"
	"github.com/ignite/inbound/internal/service/routing"
)

// Handlers holds the services the HTTP layer fronts.
type Handlers struct {
	domains *domains.Service
	routing *routing.Service

	startedAt time.Time
}

// NewHandlers creates the API handler set.
func NewHandlers(domainSvc *domains.Service, routingSvc *routing.Service) *Handlers {
	return &Handlers{
		domains:   domainSvc,
		routing:   routingSvc,
		startedAt: time.Now().UTC(),
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

type ctxKey int

const userIDKey ctxKey = 0

// RequireUser extracts the caller identity set by the gateway. Requests
// without one never reach a service.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			httputil.Error(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
