package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rensmac/govassist/internal/domain"
)

// Document categories the extraction service detects
const (
	CategoryLicense     = "license"
	CategoryReceipt     = "receipt"
	CategoryBankReceipt = "bank-receipt"
	CategoryIDCard      = "idcard"
	CategoryPassport    = "passport"
	CategoryTNBBill     = "tnb_bill"
)

// IdentityCategory reports whether a category is an identity-class document
func IdentityCategory(category string) bool {
	return category == CategoryIDCard || category == CategoryPassport
}

// ReceiptCategory reports whether a category is a payment-receipt document
func ReceiptCategory(category string) bool {
	return category == CategoryReceipt || category == CategoryBankReceipt
}

// Result is the extraction outcome for one attachment
type Result struct {
	IsBlurry   bool           `json:"is_blurry"`
	Category   string         `json:"detected_category"`
	Fields     map[string]any `json:"extracted_fields"`
	Confidence float64        `json:"confidence"`
}

// Extractor defines the document extraction collaborator. One call per
// attachment; retry and backoff are the collaborator's concern.
type Extractor interface {
	Extract(ctx context.Context, attachment domain.Attachment) (*Result, error)
}

// Client is an HTTP client for the textract-backed extraction service
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new extraction service client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type analyzeRequest struct {
	URL  string `json:"url"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Extract sends an attachment reference to the extraction service
func (c *Client) Extract(ctx context.Context, attachment domain.Attachment) (*Result, error) {
	body, err := json.Marshal(analyzeRequest{
		URL:  attachment.URL,
		Type: attachment.Type,
		Name: attachment.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
