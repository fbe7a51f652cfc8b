package audit

import (
	"time"

	id "marketplace/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    id.UserID
	Action    string
	// Subject identifies the entity acted on (order id, listing id, token hash).
	Subject string
	Reason  string
	// RequestID carries the correlation ID from the HTTP request context.
	RequestID string
}

// AuditEvent names the actions this system records.
type AuditEvent string

const (
	EventUserRegistered       AuditEvent = "user_registered"
	EventSessionCreated       AuditEvent = "session_created"
	EventSessionExpired       AuditEvent = "session_expired"
	EventSessionRevoked       AuditEvent = "session_revoked"
	EventOrderCreated         AuditEvent = "order_created"
	EventOrderConfirmed       AuditEvent = "order_confirmed"
	EventOrderCanceled        AuditEvent = "order_canceled"
	EventStockConflict        AuditEvent = "stock_conflict"
	EventPaymentIntentCreated AuditEvent = "payment_intent_created"
	EventCheckoutConfirmed    AuditEvent = "checkout_confirmed"
)
