package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rensmac/govassist/internal/ai"
	"github.com/rensmac/govassist/internal/domain"
	"github.com/rensmac/govassist/internal/extract"
)

// ConfirmationTracker turns affirmative replies into validated documents and
// recovers document context from a user's other sessions.
type ConfirmationTracker struct {
	sessions domain.SessionRepository
	flow     *FlowController
}

// NewConfirmationTracker creates a new confirmation tracker
func NewConfirmationTracker(sessions domain.SessionRepository, flow *FlowController) *ConfirmationTracker {
	return &ConfirmationTracker{sessions: sessions, flow: flow}
}

// Confirm validates the session's pending document and advances to the next
// step of the flow its category selects.
func (t *ConfirmationTracker) Confirm(ctx context.Context, session *domain.Session) (string, error) {
	if !session.HasUnconfirmedDocument() {
		return t.Recover(ctx, session)
	}

	if err := t.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"is_validated": true,
	}); err != nil {
		return "", fmt.Errorf("failed to mark document validated: %w", err)
	}
	session.IsValidated = true

	return t.advance(ctx, session)
}

// advance branches strictly on the document category
func (t *ConfirmationTracker) advance(ctx context.Context, session *domain.Session) (string, error) {
	category := session.DocumentCategory

	switch {
	case category == extract.CategoryLicense:
		return t.flow.BeginRenewal(ctx, session)

	case extract.IdentityCategory(category):
		// An identity document only starts the renewal flow when license
		// renewal is the active context.
		if t.renewalContext(session) {
			return t.flow.BeginRenewal(ctx, session)
		}
		return replyDocumentConfirmed, nil

	case category == extract.CategoryTNBBill:
		return t.flow.BeginBillPayment(ctx, session)

	default:
		return replyDocumentConfirmed, nil
	}
}

// renewalContext reports whether the session is in a license-renewal context:
// the topic is JPJ or the latest classified intent was renew_license.
func (t *ConfirmationTracker) renewalContext(session *domain.Session) bool {
	if session.Topic == ai.TopicJPJ {
		return true
	}
	for i := len(session.Messages) - 1; i >= 0; i-- {
		switch session.Messages[i].Intent {
		case ai.IntentRenewLicense:
			return true
		case ai.IntentPayBill:
			return false
		}
	}
	return false
}

// Recover handles a bare confirmation with no local unconfirmed document by
// searching the user's other sessions for the most recently processed one.
func (t *ConfirmationTracker) Recover(ctx context.Context, session *domain.Session) (string, error) {
	// A session holding a live payment cycle or an already validated document
	// keeps its own context. Recovery would overwrite the document the cycle
	// still depends on.
	if session.FlowState == domain.FlowAwaitingPaymentReceipt {
		return replyAwaitingReceipt, nil
	}
	if session.FlowState != "" && session.FlowState != domain.FlowIdle {
		return replyGenericHelp, nil
	}
	if session.IsValidated && session.DocumentCategory != "" {
		return replyDocumentConfirmed, nil
	}

	found, err := t.sessions.FindLatestWithDocument(ctx, session.UserID, session.SessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return replyNeedContext, nil
	}
	if err != nil {
		return "", fmt.Errorf("context recovery lookup failed: %w", err)
	}

	if err := t.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"document_category":     found.DocumentCategory,
		"extracted_data":        found.ExtractedData,
		"is_validated":          found.IsValidated,
		"context_restored_from": found.SessionID,
	}); err != nil {
		return "", fmt.Errorf("failed to restore context: %w", err)
	}
	session.DocumentCategory = found.DocumentCategory
	session.ExtractedData = found.ExtractedData
	session.IsValidated = found.IsValidated
	session.ContextRestoredFrom = found.SessionID

	// A document the user already confirmed elsewhere advances without
	// asking again.
	if found.IsValidated {
		return t.advance(ctx, session)
	}

	return confirmationPrompt(session.DocumentCategory, session.ExtractedData), nil
}
