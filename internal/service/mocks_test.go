package service

import (
	"context"
	"time"

	"github.com/rensmac/govassist/internal/ai"
	"github.com/rensmac/govassist/internal/domain"
	"github.com/rensmac/govassist/internal/extract"
	"github.com/rensmac/govassist/internal/ledger"
	"github.com/stretchr/testify/mock"
)

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) UpsertFields(ctx context.Context, userID, sessionID string, fields map[string]any) error {
	args := m.Called(ctx, userID, sessionID, fields)
	return args.Error(0)
}

func (m *MockSessionRepository) AppendMessage(ctx context.Context, userID, sessionID string, msg domain.Message) error {
	args := m.Called(ctx, userID, sessionID, msg)
	return args.Error(0)
}

func (m *MockSessionRepository) Close(ctx context.Context, userID, sessionID string, at time.Time) (bool, error) {
	args := m.Called(ctx, userID, sessionID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) FindLatestActive(ctx context.Context, userID string) (*domain.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) FindLatestWithDocument(ctx context.Context, userID, excludeSessionID string) (*domain.Session, error) {
	args := m.Called(ctx, userID, excludeSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

// MockIdentityRepository mocks the IdentityRepository interface
type MockIdentityRepository struct {
	mock.Mock
}

func (m *MockIdentityRepository) Upsert(ctx context.Context, userID string, fields map[string]string) error {
	args := m.Called(ctx, userID, fields)
	return args.Error(0)
}

func (m *MockIdentityRepository) Get(ctx context.Context, userID string) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

// MockExtractor mocks the document analysis client
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, attachment domain.Attachment) (*extract.Result, error) {
	args := m.Called(ctx, attachment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Result), args.Error(1)
}

// MockAccounts mocks the beneficiary account directory
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) Lookup(ctx context.Context, service string) ([]ledger.BeneficiaryAccount, error) {
	args := m.Called(ctx, service)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.BeneficiaryAccount), args.Error(1)
}

// MockRecords mocks the record ledger
type MockRecords struct {
	mock.Mock
}

func (m *MockRecords) Execute(ctx context.Context, identityKey, action string, params map[string]any) (*ledger.RecordResult, error) {
	args := m.Called(ctx, identityKey, action, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.RecordResult), args.Error(1)
}

// MockClassifier mocks an AI provider for the intent router
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClassifier) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockClassifier) Classify(ctx context.Context, message string) (*ai.Result, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Result), args.Error(1)
}
