package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rensmac/govassist/internal/domain"
	"github.com/rensmac/govassist/internal/extract"
	"github.com/rs/zerolog/log"
)

// DocumentPipeline processes an attached document through extraction and
// into session state.
type DocumentPipeline struct {
	sessions   domain.SessionRepository
	identities domain.IdentityRepository
	extractor  extract.Extractor
	flow       *FlowController
}

// NewDocumentPipeline creates a new document pipeline
func NewDocumentPipeline(
	sessions domain.SessionRepository,
	identities domain.IdentityRepository,
	extractor extract.Extractor,
	flow *FlowController,
) *DocumentPipeline {
	return &DocumentPipeline{
		sessions:   sessions,
		identities: identities,
		extractor:  extractor,
		flow:       flow,
	}
}

// Process runs one extraction call for the attachment and advances session
// state. A blurry document mutates nothing; the session treats it as never
// received.
func (p *DocumentPipeline) Process(ctx context.Context, session *domain.Session, msg domain.Message) (string, error) {
	result, err := p.extractor.Extract(ctx, *msg.Attachment)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	if result.IsBlurry {
		return "", domain.ErrBlurryDocument
	}

	msg.DetectedCategory = result.Category
	msg.ExtractedData = result.Fields
	if err := p.sessions.AppendMessage(ctx, session.UserID, session.SessionID, msg); err != nil {
		return "", err
	}

	now := time.Now().UTC()

	// A receipt arriving while a payment is awaited goes straight to
	// verification; the confirmed document under payment stays in place so
	// the record update still knows what was being paid for.
	if extract.ReceiptCategory(result.Category) && session.FlowState == domain.FlowAwaitingPaymentReceipt {
		if err := p.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
			"is_validated":             false,
			"awaiting_document_upload": "",
			"document_prompt_sent":     false,
			"last_document_at":         now,
		}); err != nil {
			return "", err
		}
		session.IsValidated = false
		session.AwaitingDocumentUpload = ""
		session.DocumentPromptSent = false
		session.LastDocumentAt = &now

		p.upsertIdentity(ctx, session.UserID, result.Fields)

		return p.flow.VerifyPayment(ctx, session, result.Fields)
	}

	// Fresh document: starts a new cycle. Validation is reset even when a
	// previous document was already confirmed.
	if err := p.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"document_category":        result.Category,
		"extracted_data":           result.Fields,
		"is_validated":             false,
		"awaiting_document_upload": "",
		"document_prompt_sent":     false,
		"flow_state":               domain.FlowIdle,
		"renewal_years":            0,
		"payment_amount":           0.0,
		"payment_verified":         false,
		"receipt_data":             nil,
		"last_document_at":         now,
	}); err != nil {
		return "", err
	}
	session.DocumentCategory = result.Category
	session.ExtractedData = result.Fields
	session.IsValidated = false
	session.AwaitingDocumentUpload = ""
	session.DocumentPromptSent = false
	session.FlowState = domain.FlowIdle
	session.RenewalYears = 0
	session.PaymentAmount = 0
	session.PaymentVerified = false
	session.ReceiptData = nil
	session.LastDocumentAt = &now

	p.upsertIdentity(ctx, session.UserID, result.Fields)

	return confirmationPrompt(result.Category, result.Fields), nil
}

// upsertIdentity stores recognized identity fields best-effort; a failure is
// logged and never surfaced.
func (p *DocumentPipeline) upsertIdentity(ctx context.Context, userID string, fields map[string]any) {
	recognized := recognizeIdentityFields(fields)
	if len(recognized) == 0 {
		return
	}

	if err := p.identities.Upsert(ctx, userID, recognized); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("identity ledger upsert failed")
	}
}
