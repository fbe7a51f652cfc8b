// Package httputil holds the JSON plumbing shared by every handler: response
// writing, the error envelope, and request decoding with validation.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "marketplace/pkg/domain-errors"
	httpErrors "marketplace/pkg/http-errors"
)

// Validatable is implemented by request types that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError translates an error into the JSON error envelope. Internal
// errors keep their detail out of the response body.
func WriteError(w http.ResponseWriter, err error) {
	code := httpErrors.CodeInternal
	message := ""

	var transportErr *httpErrors.Error
	var domainErr *dErrors.Error
	switch {
	case errors.As(err, &transportErr):
		code = transportErr.Code
		message = transportErr.Message
	case errors.As(err, &domainErr):
		code = httpErrors.FromDomain(domainErr.Code)
		message = domainErr.Message
	}

	envelope := errorEnvelope{Error: string(code)}
	if code != httpErrors.CodeInternal {
		envelope.ErrorDescription = message
	}
	WriteJSON(w, httpErrors.ToHTTPStatus(code), envelope)
}

// DecodeAndPrepare decodes the request body into T and runs its validation.
// On failure it writes the error response and returns ok=false; the handler
// just returns.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, httpErrors.New(httpErrors.CodeInvalidRequest, "malformed request body"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
