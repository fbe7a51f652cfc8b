package httptransport

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	authmodels "marketplace/internal/auth/models"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/httputil"
	"marketplace/pkg/requestcontext"
)

// RefreshedTokenHeader carries the rotated token back to the client after
// every authenticated request. Clients must replace their stored token with
// it; the presented one is no longer valid.
const RefreshedTokenHeader = "X-Refreshed-Token"

// RequestContext copies transport values the services read into the request
// context: the correlation ID and the raw User-Agent.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, middleware.GetReqID(ctx))
		ctx = requestcontext.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth authenticates the bearer token, stores the resolved identity
// in the context, and hands the rotated token back in the response header.
func RequireAuth(auth AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := auth.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			w.Header().Set(RefreshedTokenHeader, identity.Token)

			ctx := requestcontext.WithUserID(r.Context(), identity.UserID)
			ctx = requestcontext.WithSessionID(ctx, identity.SessionID)
			ctx = requestcontext.WithRole(ctx, string(identity.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route to the listed roles. It runs behind RequireAuth,
// which put the role in the context.
func RequireRole(roles ...authmodels.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := authmodels.Role(requestcontext.Role(r.Context()))
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient permissions"))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}
