package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rensmac/govassist/internal/ai"
	"github.com/rensmac/govassist/internal/domain"
	"github.com/rensmac/govassist/internal/extract"
	"github.com/rensmac/govassist/internal/repository/redis"
	"github.com/rs/zerolog/log"
)

// ChatService is the top-level dispatcher. It evaluates the routing cascade,
// delegates to the specialized services and converts every failure into a
// well-formed reply at the boundary.
type ChatService struct {
	sessions      domain.SessionRepository
	classifier    *ai.Router
	topics        *TopicManager
	gate          *DocumentGate
	documents     *DocumentPipeline
	confirmations *ConfirmationTracker
	flow          *FlowController
	replies       *redis.ReplyCache
}

// NewChatService creates a new chat service
func NewChatService(
	sessions domain.SessionRepository,
	classifier *ai.Router,
	topics *TopicManager,
	gate *DocumentGate,
	documents *DocumentPipeline,
	confirmations *ConfirmationTracker,
	flow *FlowController,
	replies *redis.ReplyCache,
) *ChatService {
	return &ChatService{
		sessions:      sessions,
		classifier:    classifier,
		topics:        topics,
		gate:          gate,
		documents:     documents,
		confirmations: confirmations,
		flow:          flow,
		replies:       replies,
	}
}

// Handle processes one inbound message and always returns a response
// envelope; no error escapes to the caller.
func (s *ChatService) Handle(ctx context.Context, req domain.ChatRequest) domain.ChatResponse {
	attachmentURL := ""
	if len(req.Attachments) > 0 {
		attachmentURL = req.Attachments[0].URL
	}
	fp := fingerprint(req.UserID, req.SessionID, req.CreatedAt.Format(time.RFC3339Nano), req.Message, attachmentURL)

	// A redelivered message gets its original reply back.
	if s.replies != nil {
		if cached, err := s.replies.Get(ctx, fp); err == nil && cached != nil {
			return *cached
		}
	}

	reply, session, err := s.handle(ctx, req, fp)
	if err != nil {
		reply = replyForError(err)
		log.Error().Err(err).
			Str("user_id", req.UserID).
			Str("session_id", req.SessionID).
			Msg("chat request failed")
	}

	sessionID := req.SessionID
	if session != nil {
		sessionID = session.SessionID
	}

	resp := domain.ChatResponse{
		MessageID:   uuid.New().String(),
		Message:     reply,
		SessionID:   sessionID,
		Attachments: []domain.Attachment{},
		CreatedAt:   time.Now().UTC(),
	}

	if s.replies != nil && err == nil {
		if cacheErr := s.replies.Set(ctx, fp, &resp); cacheErr != nil {
			log.Warn().Err(cacheErr).Msg("failed to cache reply")
		}
	}

	return resp
}

func (s *ChatService) handle(ctx context.Context, req domain.ChatRequest, fp string) (string, *domain.Session, error) {
	firstContact := req.SessionID == domain.NewSessionSentinel

	session, err := s.resolveSession(ctx, req, firstContact)
	if err != nil {
		return "", nil, err
	}

	msg := domain.Message{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(fp)).String(),
		Text:      req.Message,
		Timestamp: messageTime(req.CreatedAt),
		Sender:    "user",
	}

	// Priority cascade; first match wins.
	switch {
	case len(req.Attachments) > 0:
		msg.Attachment = &req.Attachments[0]
		reply, err := s.documents.Process(ctx, session, msg)
		return reply, session, err

	case firstContact:
		if err := s.sessions.AppendMessage(ctx, session.UserID, session.SessionID, msg); err != nil {
			return "", session, err
		}
		return replyWelcome, session, nil

	case IsGreeting(req.Message):
		if err := s.sessions.AppendMessage(ctx, session.UserID, session.SessionID, msg); err != nil {
			return "", session, err
		}
		return replyGreeting, session, nil

	case IsFarewell(req.Message):
		return s.handleFarewell(ctx, session, msg)

	case session.GateOpen() && !IsExitCommand(req.Message):
		return s.handleGatedMessage(ctx, session, msg)

	default:
		return s.handleConversation(ctx, session, msg)
	}
}

// resolveSession loads or creates the session the request addresses. A
// reference to a closed session moves to the user's latest active session
// rather than reopening the closed one.
func (s *ChatService) resolveSession(ctx context.Context, req domain.ChatRequest, firstContact bool) (*domain.Session, error) {
	if firstContact {
		return s.topics.Open(ctx, req.UserID, "")
	}

	session, err := s.sessions.Get(ctx, req.UserID, req.SessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return s.topics.Open(ctx, req.UserID, "")
	}
	if err != nil {
		return nil, err
	}

	if session.Status == domain.SessionClosed {
		latest, err := s.sessions.FindLatestActive(ctx, req.UserID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return s.topics.Open(ctx, req.UserID, "")
		}
		if err != nil {
			return nil, err
		}
		return latest, nil
	}

	return session, nil
}

// handleFarewell closes the conversation and opens a fresh session for the
// next contact.
func (s *ChatService) handleFarewell(ctx context.Context, session *domain.Session, msg domain.Message) (string, *domain.Session, error) {
	if err := s.sessions.AppendMessage(ctx, session.UserID, session.SessionID, msg); err != nil {
		return "", session, err
	}

	if _, err := s.sessions.Close(ctx, session.UserID, session.SessionID, time.Now().UTC()); err != nil {
		return "", session, err
	}

	next, err := s.topics.Open(ctx, session.UserID, "")
	if err != nil {
		return "", session, err
	}

	return replyFarewell, next, nil
}

// handleGatedMessage runs while a document gate is open. The gate blocks
// everything except an explicit exit; the only way forward without a
// document is switching to the other document-requiring intent, which
// abandons the old gate.
func (s *ChatService) handleGatedMessage(ctx context.Context, session *domain.Session, msg domain.Message) (string, *domain.Session, error) {
	result := s.classify(ctx, msg.Text)
	msg.Intent = result.Intent
	msg.Topic = result.Topic

	if err := s.sessions.AppendMessage(ctx, session.UserID, session.SessionID, msg); err != nil {
		return "", session, err
	}

	if ai.DocumentRequired(result.Intent) && result.Intent != session.AwaitingDocumentUpload {
		if err := s.gate.Clear(ctx, session); err != nil {
			return "", session, err
		}
		reply, err := s.gate.Request(ctx, session, result.Intent)
		return reply, session, err
	}

	reply, err := s.gate.Request(ctx, session, session.AwaitingDocumentUpload)
	return reply, session, err
}

// handleConversation is the classifier-backed route at the bottom of the
// cascade.
func (s *ChatService) handleConversation(ctx context.Context, session *domain.Session, msg domain.Message) (string, *domain.Session, error) {
	if IsExitCommand(msg.Text) {
		if err := s.sessions.AppendMessage(ctx, session.UserID, session.SessionID, msg); err != nil {
			return "", session, err
		}
		if session.GateOpen() {
			if err := s.gate.Clear(ctx, session); err != nil {
				return "", session, err
			}
		}
		if err := s.flow.Reset(ctx, session); err != nil {
			return "", session, err
		}
		return replyGateCancelled, session, nil
	}

	result := s.classify(ctx, msg.Text)
	msg.Intent = result.Intent
	msg.Topic = result.Topic

	informational := result.Intent == ai.IntentConfirm || result.Intent == ai.IntentUnknown
	session, err := s.topics.Apply(ctx, session, result.Topic, informational)
	if err != nil {
		return "", session, err
	}

	if err := s.sessions.AppendMessage(ctx, session.UserID, session.SessionID, msg); err != nil {
		return "", session, err
	}

	switch {
	case session.FlowState == domain.FlowAwaitingYearSelection:
		reply, err := s.flow.HandleYearSelection(ctx, session, msg.Text)
		return reply, session, err

	case (IsAffirmative(msg.Text) && session.HasUnconfirmedDocument()) || result.Intent == ai.IntentConfirm:
		reply, err := s.confirmations.Confirm(ctx, session)
		return reply, session, err

	case ai.DocumentRequired(result.Intent):
		reply, err := s.handleDocumentIntent(ctx, session, result.Intent)
		return reply, session, err

	case result.Intent == ai.IntentCheckStatus:
		return s.statusReply(session), session, nil

	default:
		return replyGenericHelp, session, nil
	}
}

// handleDocumentIntent proceeds when a usable document is already on the
// session, otherwise opens the intake gate.
func (s *ChatService) handleDocumentIntent(ctx context.Context, session *domain.Session, intent string) (string, error) {
	if session.HasUnconfirmedDocument() && categoryServesIntent(session.DocumentCategory, intent) {
		return confirmationPrompt(session.DocumentCategory, session.ExtractedData), nil
	}

	if session.IsValidated && categoryServesIntent(session.DocumentCategory, intent) {
		if intent == ai.IntentRenewLicense {
			return s.flow.BeginRenewal(ctx, session)
		}
		return s.flow.BeginBillPayment(ctx, session)
	}

	return s.gate.Request(ctx, session, intent)
}

func (s *ChatService) statusReply(session *domain.Session) string {
	if session.IsValidated && session.DocumentCategory != "" {
		return fmt.Sprintf(
			"Your %s details are on file. Say \"renew my license\" or \"pay my bill\" and I'll take it from there.",
			categoryLabel(session.DocumentCategory),
		)
	}
	return replyCheckStatusNeedDocument
}

// classify calls the AI classifier, degrading to the unknown intent on any
// failure rather than propagating it.
func (s *ChatService) classify(ctx context.Context, message string) *ai.Result {
	result, err := s.classifier.Classify(ctx, message)
	if err != nil {
		log.Warn().Err(err).Msg("intent classification failed, degrading to unknown")
		return &ai.Result{Intent: ai.IntentUnknown}
	}
	return result
}

func categoryServesIntent(category, intent string) bool {
	switch intent {
	case ai.IntentRenewLicense:
		return category == extract.CategoryLicense || extract.IdentityCategory(category)
	case ai.IntentPayBill:
		return category == extract.CategoryTNBBill
	}
	return false
}

func messageTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// replyForError maps the failure taxonomy onto user-visible replies
func replyForError(err error) string {
	switch {
	case errors.Is(err, domain.ErrBlurryDocument):
		return replyBlurryDocument
	case errors.Is(err, domain.ErrExtraction):
		return replyExtractionRetry
	default:
		return replyApology
	}
}
