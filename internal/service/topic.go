package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rensmac/govassist/internal/domain"
)

// TopicManager decides whether a classified topic continues the current
// session or rotates to a new one.
type TopicManager struct {
	sessions domain.SessionRepository
}

// NewTopicManager creates a new topic manager
func NewTopicManager(sessions domain.SessionRepository) *TopicManager {
	return &TopicManager{sessions: sessions}
}

// Apply reconciles the classified topic with the session. It returns the
// session the conversation continues in, which is a freshly opened one when
// the topic changed. Informational sub-intents never rotate.
func (m *TopicManager) Apply(ctx context.Context, session *domain.Session, topic string, informational bool) (*domain.Session, error) {
	if informational || topic == "" || topic == session.Topic {
		return session, nil
	}

	if session.Topic == "" {
		if err := m.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
			"topic": topic,
		}); err != nil {
			return nil, fmt.Errorf("failed to attach topic: %w", err)
		}
		session.Topic = topic
		return session, nil
	}

	// Topic changed: close the current session and open a new one.
	now := time.Now().UTC()
	closed, err := m.sessions.Close(ctx, session.UserID, session.SessionID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}

	// Already closed means this message was processed before; reuse the
	// session the earlier rotation opened instead of opening another.
	if !closed {
		latest, err := m.sessions.FindLatestActive(ctx, session.UserID)
		if err == nil && latest.Topic == topic {
			return latest, nil
		}
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to find active session: %w", err)
		}
	}

	return m.Open(ctx, session.UserID, topic)
}

// Open creates a fresh active session for a user
func (m *TopicManager) Open(ctx context.Context, userID, topic string) (*domain.Session, error) {
	id := uuid.New().String()
	session := &domain.Session{
		ID:        id,
		UserID:    userID,
		SessionID: id,
		Status:    domain.SessionActive,
		Topic:     topic,
		Messages:  []domain.Message{},
		FlowState: domain.FlowIdle,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}
