package ai

import (
	"context"
	"fmt"
	"sync"
)

// Intents recognized by the classifier
const (
	IntentRenewLicense = "renew_license"
	IntentPayBill      = "pay_bill"
	IntentCheckStatus  = "check_status"
	IntentConfirm      = "confirm"
	IntentUnknown      = "unknown"
)

// Topics a conversation can be about
const (
	TopicJPJ = "jpj"
	TopicTNB = "tnb"
)

// Result contains a single classification outcome
type Result struct {
	Intent     string  `json:"intent"`
	Topic      string  `json:"topic,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Provider defines the interface for intent classification backends
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Classify determines the intent and topic of a user message
	Classify(ctx context.Context, message string) (*Result, error)
}

// DocumentRequired reports whether an intent is gated on a document upload
func DocumentRequired(intent string) bool {
	return intent == IntentRenewLicense || intent == IntentPayBill
}

// Router manages classification providers and routing
type Router struct {
	providers       map[string]Provider
	defaultProvider string
	mu              sync.RWMutex
}

// NewRouter creates a new classifier router
func NewRouter(defaultProvider string) *Router {
	return &Router{
		providers:       make(map[string]Provider),
		defaultProvider: defaultProvider,
	}
}

// RegisterProvider registers a classification provider
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a provider by name
func (r *Router) GetProvider(name string) (Provider, error) {
	if name == "" {
		name = r.defaultProvider
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}

	if !p.IsConfigured() {
		return nil, fmt.Errorf("provider not configured: %s", name)
	}

	return p, nil
}

// DefaultProvider returns the default provider name
func (r *Router) DefaultProvider() string {
	return r.defaultProvider
}

// Classify routes a message to the default provider
func (r *Router) Classify(ctx context.Context, message string) (*Result, error) {
	p, err := r.GetProvider("")
	if err != nil {
		return nil, err
	}
	return p.Classify(ctx, message)
}
