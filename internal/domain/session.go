package domain

import (
	"context"
	"time"
)

// SessionStatus represents the lifecycle state of a session
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// FlowState is the transactional flow position of a session. A session holds
// exactly one state; transitions are checked by CanTransition.
type FlowState string

const (
	FlowIdle                   FlowState = "idle"
	FlowAwaitingYearSelection  FlowState = "awaiting_year_selection"
	FlowAwaitingPaymentReceipt FlowState = "awaiting_payment_receipt"
	FlowPaymentVerified        FlowState = "payment_verified"
)

// NewSessionSentinel is the inbound sessionId that marks a first contact.
const NewSessionSentinel = "(new-session)"

// Session represents one conversation thread for a user
type Session struct {
	ID                     string         `json:"id" bson:"_id"`
	UserID                 string         `json:"user_id" bson:"user_id"`
	SessionID              string         `json:"session_id" bson:"session_id"`
	Status                 SessionStatus  `json:"status" bson:"status"`
	Topic                  string         `json:"topic,omitempty" bson:"topic,omitempty"`
	Messages               []Message      `json:"messages" bson:"messages"`
	DocumentCategory       string         `json:"document_category,omitempty" bson:"document_category,omitempty"`
	ExtractedData          map[string]any `json:"extracted_data,omitempty" bson:"extracted_data,omitempty"`
	IsValidated            bool           `json:"is_validated" bson:"is_validated"`
	AwaitingDocumentUpload string         `json:"awaiting_document_upload,omitempty" bson:"awaiting_document_upload,omitempty"`
	DocumentPromptSent     bool           `json:"document_prompt_sent" bson:"document_prompt_sent"`
	FlowState              FlowState      `json:"flow_state" bson:"flow_state"`
	RenewalYears           int            `json:"renewal_years,omitempty" bson:"renewal_years,omitempty"`
	PaymentAmount          float64        `json:"payment_amount,omitempty" bson:"payment_amount,omitempty"`
	PaymentVerified        bool           `json:"payment_verified" bson:"payment_verified"`
	ReceiptData            map[string]any `json:"receipt_data,omitempty" bson:"receipt_data,omitempty"`
	ContextRestoredFrom    string         `json:"context_restored_from,omitempty" bson:"context_restored_from,omitempty"`
	LastDocumentAt         *time.Time     `json:"last_document_at,omitempty" bson:"last_document_at,omitempty"`
	CreatedAt              time.Time      `json:"created_at" bson:"created_at"`
	ClosedAt               *time.Time     `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
	UpdatedAt              time.Time      `json:"updated_at" bson:"updated_at"`
}

// GateOpen reports whether a document-upload gate is pending on the session
func (s *Session) GateOpen() bool {
	return s.AwaitingDocumentUpload != ""
}

// HasUnconfirmedDocument reports whether the session holds extracted data the
// user has not yet confirmed.
func (s *Session) HasUnconfirmedDocument() bool {
	return len(s.ExtractedData) > 0 && !s.IsValidated && s.DocumentCategory != ""
}

// CanTransition reports whether moving from the session's current flow state
// to the target state is legal. PAYMENT_VERIFIED is terminal for a cycle; a
// new cycle starts from FlowIdle when a fresh document arrives.
func (s *Session) CanTransition(to FlowState) bool {
	from := s.FlowState
	if from == "" {
		from = FlowIdle
	}
	switch to {
	case FlowIdle:
		return true
	case FlowAwaitingYearSelection:
		return from == FlowIdle
	case FlowAwaitingPaymentReceipt:
		return from == FlowIdle || from == FlowAwaitingYearSelection
	case FlowPaymentVerified:
		return from == FlowAwaitingPaymentReceipt
	}
	return false
}

// SessionRepository defines the interface for session storage. Mutating
// operations are conditional on (user_id, session_id, status=active) so a
// redelivered message can never mutate a closed session or double-apply.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, userID, sessionID string) (*Session, error)
	UpsertFields(ctx context.Context, userID, sessionID string, fields map[string]any) error
	AppendMessage(ctx context.Context, userID, sessionID string, msg Message) error
	Close(ctx context.Context, userID, sessionID string, closedAt time.Time) (bool, error)
	FindLatestActive(ctx context.Context, userID string) (*Session, error)
	FindLatestWithDocument(ctx context.Context, userID, excludeSessionID string) (*Session, error)
}
