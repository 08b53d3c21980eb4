package service

import (
	"context"
	"fmt"

	"github.com/rensmac/govassist/internal/ai"
	"github.com/rensmac/govassist/internal/domain"
)

// DocumentGate enforces the "document before intent" precondition for the
// transactional intents.
type DocumentGate struct {
	sessions domain.SessionRepository
}

// NewDocumentGate creates a new document gate
func NewDocumentGate(sessions domain.SessionRepository) *DocumentGate {
	return &DocumentGate{sessions: sessions}
}

// Request opens (or re-prompts) the gate for an intent. A repeat of the same
// gated intent gets a short reminder, not the full prompt. A different
// document-requiring intent abandons the old gate and opens a fresh one;
// gates never stack.
func (g *DocumentGate) Request(ctx context.Context, session *domain.Session, intent string) (string, error) {
	if session.AwaitingDocumentUpload == intent && session.DocumentPromptSent {
		return replyUploadReminder, nil
	}

	if err := g.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"awaiting_document_upload": intent,
		"document_prompt_sent":     true,
	}); err != nil {
		return "", fmt.Errorf("failed to open document gate: %w", err)
	}
	session.AwaitingDocumentUpload = intent
	session.DocumentPromptSent = true

	return uploadPrompt(intent), nil
}

// Clear removes the gate unconditionally, regardless of which intent set it
func (g *DocumentGate) Clear(ctx context.Context, session *domain.Session) error {
	if !session.GateOpen() {
		return nil
	}

	if err := g.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"awaiting_document_upload": "",
		"document_prompt_sent":     false,
	}); err != nil {
		return fmt.Errorf("failed to clear document gate: %w", err)
	}
	session.AwaitingDocumentUpload = ""
	session.DocumentPromptSent = false

	return nil
}

func uploadPrompt(intent string) string {
	switch intent {
	case ai.IntentPayBill:
		return replyUploadBill
	default:
		return replyUploadLicense
	}
}
