package service

import (
	"context"
	"testing"

	"github.com/rensmac/govassist/internal/ai"
	"github.com/rensmac/govassist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDocumentGate_Request(t *testing.T) {
	t.Run("opens gate with full prompt", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		gate := NewDocumentGate(sessions)

		session := &domain.Session{UserID: "u1", SessionID: "s1"}
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", map[string]any{
			"awaiting_document_upload": ai.IntentRenewLicense,
			"document_prompt_sent":     true,
		}).Return(nil)

		reply, err := gate.Request(context.Background(), session, ai.IntentRenewLicense)

		require.NoError(t, err)
		assert.Equal(t, replyUploadLicense, reply)
		assert.True(t, session.GateOpen())
		sessions.AssertExpectations(t)
	})

	t.Run("repeat of the same intent gets a reminder", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		gate := NewDocumentGate(sessions)

		session := &domain.Session{
			UserID:                 "u1",
			SessionID:              "s1",
			AwaitingDocumentUpload: ai.IntentPayBill,
			DocumentPromptSent:     true,
		}

		reply, err := gate.Request(context.Background(), session, ai.IntentPayBill)

		require.NoError(t, err)
		assert.Equal(t, replyUploadReminder, reply)
		sessions.AssertNotCalled(t, "UpsertFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("different gated intent replaces the gate", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		gate := NewDocumentGate(sessions)

		session := &domain.Session{
			UserID:                 "u1",
			SessionID:              "s1",
			AwaitingDocumentUpload: ai.IntentRenewLicense,
			DocumentPromptSent:     true,
		}
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", map[string]any{
			"awaiting_document_upload": ai.IntentPayBill,
			"document_prompt_sent":     true,
		}).Return(nil)

		reply, err := gate.Request(context.Background(), session, ai.IntentPayBill)

		require.NoError(t, err)
		assert.Equal(t, replyUploadBill, reply)
		assert.Equal(t, ai.IntentPayBill, session.AwaitingDocumentUpload)
	})
}

func TestDocumentGate_Clear(t *testing.T) {
	t.Run("clears an open gate", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		gate := NewDocumentGate(sessions)

		session := &domain.Session{
			UserID:                 "u1",
			SessionID:              "s1",
			AwaitingDocumentUpload: ai.IntentRenewLicense,
			DocumentPromptSent:     true,
		}
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", map[string]any{
			"awaiting_document_upload": "",
			"document_prompt_sent":     false,
		}).Return(nil)

		err := gate.Clear(context.Background(), session)

		require.NoError(t, err)
		assert.False(t, session.GateOpen())
		sessions.AssertExpectations(t)
	})

	t.Run("no-op when gate is closed", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		gate := NewDocumentGate(sessions)

		session := &domain.Session{UserID: "u1", SessionID: "s1"}

		err := gate.Clear(context.Background(), session)

		require.NoError(t, err)
		sessions.AssertNotCalled(t, "UpsertFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
