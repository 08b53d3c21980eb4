package service

import (
	"context"
	"testing"

	"github.com/rensmac/govassist/internal/ai"
	"github.com/rensmac/govassist/internal/domain"
	"github.com/rensmac/govassist/internal/extract"
	"github.com/rensmac/govassist/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTracker(sessions *MockSessionRepository, accounts *MockAccounts) *ConfirmationTracker {
	flow := NewFlowController(sessions, accounts, new(MockRecords), 30.0, 5)
	return NewConfirmationTracker(sessions, flow)
}

func TestConfirmationTracker_Confirm(t *testing.T) {
	t.Run("confirming a license starts year selection", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		tracker := newTracker(sessions, new(MockAccounts))

		session := &domain.Session{
			UserID:           "u1",
			SessionID:        "s1",
			DocumentCategory: extract.CategoryLicense,
			ExtractedData:    map[string]any{"license_number": "1234567 AB12CD34"},
			FlowState:        domain.FlowIdle,
		}
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", map[string]any{"is_validated": true}).Return(nil)
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", map[string]any{
			"flow_state": domain.FlowAwaitingYearSelection,
		}).Return(nil)

		reply, err := tracker.Confirm(context.Background(), session)

		require.NoError(t, err)
		assert.Equal(t, replyYearPrompt, reply)
		assert.True(t, session.IsValidated)
		assert.Equal(t, domain.FlowAwaitingYearSelection, session.FlowState)
		sessions.AssertExpectations(t)
	})

	t.Run("confirming a bill starts payment with the bill amount", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		accounts := new(MockAccounts)
		tracker := newTracker(sessions, accounts)

		session := &domain.Session{
			UserID:           "u1",
			SessionID:        "s1",
			DocumentCategory: extract.CategoryTNBBill,
			ExtractedData:    map[string]any{"amount_due": "RM85.20", "account_number": "220011223344"},
			FlowState:        domain.FlowIdle,
		}
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", mock.Anything).Return(nil)
		accounts.On("Lookup", mock.Anything, ledger.ServiceTNB).Return([]ledger.BeneficiaryAccount{
			{Name: "TNB Collections", Account: "9876543210"},
		}, nil)

		reply, err := tracker.Confirm(context.Background(), session)

		require.NoError(t, err)
		assert.Contains(t, reply, "RM85.20")
		assert.Equal(t, domain.FlowAwaitingPaymentReceipt, session.FlowState)
	})

	t.Run("identity card outside renewal context just confirms", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		tracker := newTracker(sessions, new(MockAccounts))

		session := &domain.Session{
			UserID:           "u1",
			SessionID:        "s1",
			Topic:            ai.TopicTNB,
			DocumentCategory: extract.CategoryIDCard,
			ExtractedData:    map[string]any{"identity_no": "900101145678"},
		}
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", map[string]any{"is_validated": true}).Return(nil)

		reply, err := tracker.Confirm(context.Background(), session)

		require.NoError(t, err)
		assert.Equal(t, replyDocumentConfirmed, reply)
	})

	t.Run("identity card in renewal context starts year selection", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		tracker := newTracker(sessions, new(MockAccounts))

		session := &domain.Session{
			UserID:           "u1",
			SessionID:        "s1",
			DocumentCategory: extract.CategoryIDCard,
			ExtractedData:    map[string]any{"identity_no": "900101145678"},
			Messages: []domain.Message{
				{ID: "m1", Text: "I want to renew my license", Intent: ai.IntentRenewLicense},
				{ID: "m2", Text: "here you go"},
			},
		}
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", mock.Anything).Return(nil)

		reply, err := tracker.Confirm(context.Background(), session)

		require.NoError(t, err)
		assert.Equal(t, replyYearPrompt, reply)
	})
}

func TestConfirmationTracker_Recover(t *testing.T) {
	t.Run("no document anywhere asks for context", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		tracker := newTracker(sessions, new(MockAccounts))

		session := &domain.Session{UserID: "u1", SessionID: "s1"}
		sessions.On("FindLatestWithDocument", mock.Anything, "u1", "s1").Return(nil, domain.ErrSessionNotFound)

		reply, err := tracker.Confirm(context.Background(), session)

		require.NoError(t, err)
		assert.Equal(t, replyNeedContext, reply)
		sessions.AssertNotCalled(t, "UpsertFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unvalidated document from another session re-prompts confirmation", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		tracker := newTracker(sessions, new(MockAccounts))

		session := &domain.Session{UserID: "u1", SessionID: "s2"}
		found := &domain.Session{
			UserID:           "u1",
			SessionID:        "s1",
			DocumentCategory: extract.CategoryLicense,
			ExtractedData:    map[string]any{"license_number": "1234567 AB12CD34"},
			IsValidated:      false,
		}
		sessions.On("FindLatestWithDocument", mock.Anything, "u1", "s2").Return(found, nil)
		sessions.On("UpsertFields", mock.Anything, "u1", "s2", map[string]any{
			"document_category":     extract.CategoryLicense,
			"extracted_data":        found.ExtractedData,
			"is_validated":          false,
			"context_restored_from": "s1",
		}).Return(nil)

		reply, err := tracker.Confirm(context.Background(), session)

		require.NoError(t, err)
		assert.Contains(t, reply, "driving license")
		assert.Contains(t, reply, "confirm")
		assert.Equal(t, "s1", session.ContextRestoredFrom)
	})

	t.Run("validated document from another session advances immediately", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		tracker := newTracker(sessions, new(MockAccounts))

		session := &domain.Session{UserID: "u1", SessionID: "s2", FlowState: domain.FlowIdle}
		found := &domain.Session{
			UserID:           "u1",
			SessionID:        "s1",
			DocumentCategory: extract.CategoryLicense,
			ExtractedData:    map[string]any{"license_number": "1234567 AB12CD34"},
			IsValidated:      true,
		}
		sessions.On("FindLatestWithDocument", mock.Anything, "u1", "s2").Return(found, nil)
		sessions.On("UpsertFields", mock.Anything, "u1", "s2", mock.Anything).Return(nil)

		reply, err := tracker.Confirm(context.Background(), session)

		require.NoError(t, err)
		assert.Equal(t, replyYearPrompt, reply)
		assert.Equal(t, domain.FlowAwaitingYearSelection, session.FlowState)
	})

	t.Run("pending payment keeps its own document context", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		tracker := newTracker(sessions, new(MockAccounts))

		session := &domain.Session{
			UserID:           "u1",
			SessionID:        "s1",
			DocumentCategory: extract.CategoryLicense,
			ExtractedData:    map[string]any{"license_number": "1234567 AB12CD34", "identity_no": "900101145678"},
			IsValidated:      true,
			FlowState:        domain.FlowAwaitingPaymentReceipt,
			RenewalYears:     2,
			PaymentAmount:    60.0,
		}

		reply, err := tracker.Confirm(context.Background(), session)

		require.NoError(t, err)
		assert.Equal(t, replyAwaitingReceipt, reply)
		assert.Equal(t, extract.CategoryLicense, session.DocumentCategory)
		assert.Equal(t, "900101145678", session.ExtractedData["identity_no"])
		sessions.AssertNotCalled(t, "FindLatestWithDocument", mock.Anything, mock.Anything, mock.Anything)
		sessions.AssertNotCalled(t, "UpsertFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validated idle document is not overwritten", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		tracker := newTracker(sessions, new(MockAccounts))

		session := &domain.Session{
			UserID:           "u1",
			SessionID:        "s1",
			DocumentCategory: extract.CategoryIDCard,
			ExtractedData:    map[string]any{"identity_no": "900101145678"},
			IsValidated:      true,
			FlowState:        domain.FlowIdle,
		}

		reply, err := tracker.Confirm(context.Background(), session)

		require.NoError(t, err)
		assert.Equal(t, replyDocumentConfirmed, reply)
		assert.Equal(t, extract.CategoryIDCard, session.DocumentCategory)
		sessions.AssertNotCalled(t, "FindLatestWithDocument", mock.Anything, mock.Anything, mock.Anything)
	})
}
