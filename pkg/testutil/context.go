package testutil

import (
	"net/http"

	id "marketplace/pkg/domain"
	"marketplace/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, simulating what the auth
// middleware does for authenticated requests.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithRole adds a role to the request context.
func WithRole(req *http.Request, role string) *http.Request {
	return req.WithContext(requestcontext.WithRole(req.Context(), role))
}

// WithAuth adds user ID, session ID, and role to the request context. This is
// the typical state of a request that passed the auth middleware.
func WithAuth(req *http.Request, userID id.UserID, sessionID id.SessionID, role string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithSessionID(ctx, sessionID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}
