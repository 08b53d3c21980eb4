package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rensmac/govassist/internal/domain"
	"github.com/rensmac/govassist/internal/extract"
	"github.com/rensmac/govassist/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPipeline(sessions *MockSessionRepository, identities *MockIdentityRepository, extractor *MockExtractor) *DocumentPipeline {
	flow := NewFlowController(sessions, new(MockAccounts), new(MockRecords), 30.0, 5)
	return NewDocumentPipeline(sessions, identities, extractor, flow)
}

func attachmentMessage() domain.Message {
	return domain.Message{
		ID:         "m1",
		Text:       "",
		Sender:     "user",
		Attachment: &domain.Attachment{URL: "https://cdn.example/license.jpg", Type: "image/jpeg"},
	}
}

func TestDocumentPipeline_Process(t *testing.T) {
	t.Run("blurry document mutates nothing", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		identities := new(MockIdentityRepository)
		extractor := new(MockExtractor)
		pipeline := newPipeline(sessions, identities, extractor)

		session := &domain.Session{UserID: "u1", SessionID: "s1", AwaitingDocumentUpload: "renew_license", DocumentPromptSent: true}
		extractor.On("Extract", mock.Anything, mock.Anything).Return(&extract.Result{IsBlurry: true}, nil)

		_, err := pipeline.Process(context.Background(), session, attachmentMessage())

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrBlurryDocument)
		assert.Equal(t, replyBlurryDocument, replyForError(err))
		assert.True(t, session.GateOpen())
		sessions.AssertNotCalled(t, "UpsertFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		sessions.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("extraction failure surfaces as extraction error", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		identities := new(MockIdentityRepository)
		extractor := new(MockExtractor)
		pipeline := newPipeline(sessions, identities, extractor)

		session := &domain.Session{UserID: "u1", SessionID: "s1"}
		extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("service timeout"))

		_, err := pipeline.Process(context.Background(), session, attachmentMessage())

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrExtraction)
		sessions.AssertNotCalled(t, "UpsertFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("clear document resets validation and clears gate", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		identities := new(MockIdentityRepository)
		extractor := new(MockExtractor)
		pipeline := newPipeline(sessions, identities, extractor)

		session := &domain.Session{
			UserID:                 "u1",
			SessionID:              "s1",
			AwaitingDocumentUpload: "renew_license",
			DocumentPromptSent:     true,
			IsValidated:            true,
			DocumentCategory:       extract.CategoryTNBBill,
		}
		fields := map[string]any{
			"identity_no":    "900101145678",
			"license_number": "1234567 AB12CD34",
			"full_name":      "Ahmad bin Abdullah",
		}
		extractor.On("Extract", mock.Anything, mock.Anything).
			Return(&extract.Result{Category: extract.CategoryLicense, Fields: fields}, nil)
		sessions.On("AppendMessage", mock.Anything, "u1", "s1", mock.AnythingOfType("domain.Message")).Return(nil)
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", mock.Anything).Return(nil)
		identities.On("Upsert", mock.Anything, "u1", map[string]string{
			"identity_no":    "900101145678",
			"license_number": "1234567 AB12CD34",
			"full_name":      "Ahmad bin Abdullah",
		}).Return(nil)

		reply, err := pipeline.Process(context.Background(), session, attachmentMessage())

		require.NoError(t, err)
		assert.Contains(t, reply, "driving license")
		assert.Contains(t, reply, "Ahmad bin Abdullah")
		assert.False(t, session.IsValidated)
		assert.False(t, session.GateOpen())
		assert.Equal(t, extract.CategoryLicense, session.DocumentCategory)
		assert.Equal(t, domain.FlowIdle, session.FlowState)
		assert.NotNil(t, session.LastDocumentAt)
		identities.AssertExpectations(t)
	})

	t.Run("identity ledger failure does not block the reply", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		identities := new(MockIdentityRepository)
		extractor := new(MockExtractor)
		pipeline := newPipeline(sessions, identities, extractor)

		session := &domain.Session{UserID: "u1", SessionID: "s1"}
		extractor.On("Extract", mock.Anything, mock.Anything).
			Return(&extract.Result{Category: extract.CategoryIDCard, Fields: map[string]any{"identity_no": "900101145678"}}, nil)
		sessions.On("AppendMessage", mock.Anything, "u1", "s1", mock.AnythingOfType("domain.Message")).Return(nil)
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", mock.Anything).Return(nil)
		identities.On("Upsert", mock.Anything, "u1", mock.Anything).Return(errors.New("mongo down"))

		reply, err := pipeline.Process(context.Background(), session, attachmentMessage())

		require.NoError(t, err)
		assert.Contains(t, reply, "identity card")
	})

	t.Run("receipt while awaiting payment goes to verification", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		identities := new(MockIdentityRepository)
		extractor := new(MockExtractor)
		accounts := new(MockAccounts)
		records := new(MockRecords)
		flow := NewFlowController(sessions, accounts, records, 30.0, 5)
		pipeline := NewDocumentPipeline(sessions, identities, extractor, flow)

		session := &domain.Session{
			UserID:           "u1",
			SessionID:        "s1",
			DocumentCategory: extract.CategoryLicense,
			ExtractedData:    map[string]any{"identity_no": "900101145678"},
			IsValidated:      true,
			FlowState:        domain.FlowAwaitingPaymentReceipt,
			RenewalYears:     2,
			PaymentAmount:    60.0,
		}
		extractor.On("Extract", mock.Anything, mock.Anything).
			Return(&extract.Result{Category: extract.CategoryBankReceipt, Fields: map[string]any{"amount": "RM60.00"}}, nil)
		sessions.On("AppendMessage", mock.Anything, "u1", "s1", mock.AnythingOfType("domain.Message")).Return(nil)
		sessions.On("UpsertFields", mock.Anything, "u1", "s1", mock.Anything).Return(nil)
		records.On("Execute", mock.Anything, "900101145678", ledger.ActionLicenseExtend, mock.Anything).
			Return(&ledger.RecordResult{Success: true, Message: "License extended by 2 years."}, nil)

		reply, err := pipeline.Process(context.Background(), session, attachmentMessage())

		require.NoError(t, err)
		assert.Contains(t, reply, "verified")
		assert.Contains(t, reply, "License extended by 2 years.")
		// The license under payment stays in place; only validation resets.
		assert.Equal(t, extract.CategoryLicense, session.DocumentCategory)
		assert.False(t, session.IsValidated)
		assert.Equal(t, domain.FlowPaymentVerified, session.FlowState)
	})
}
