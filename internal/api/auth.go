package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openclinic/clinic-scheduling/internal/clinic"
)

const actorIDKey contextKey = "actor_id"

// RequirePermission gates staff routes on a membership permission flag.
// Token verification happens upstream; this layer only sees the resolved
// member id. The check runs before any handler reads mutable booking state
// so unauthorized callers learn nothing about it.
func RequirePermission(auth clinic.Authorizer, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			memberID, err := uuid.Parse(r.Header.Get("X-Member-ID"))
			if err != nil {
				writeError(w, http.StatusForbidden, "permission_denied", "missing or invalid member identity")
				return
			}

			tenant := chi.URLParam(r, "tenant")
			ok, err := auth.HasPermission(r.Context(), tenant, memberID, perm)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "permission_denied", "caller lacks "+perm)
				return
			}

			ctx := context.WithValue(r.Context(), actorIDKey, memberID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorID retrieves the authenticated staff member id from context.
func ActorID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(actorIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
