package extract_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rensmac/govassist/internal/domain"
	"github.com/rensmac/govassist/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://files.example.com/license.jpg", req["url"])

		json.NewEncoder(w).Encode(extract.Result{
			IsBlurry: false,
			Category: extract.CategoryLicense,
			Fields: map[string]any{
				"identity_no": "011223071234",
				"full_name":   "Ahmad Bin Ali",
			},
			Confidence: 0.92,
		})
	}))
	defer server.Close()

	client := extract.NewClient(server.URL, 0)
	result, err := client.Extract(context.Background(), domain.Attachment{
		URL:  "https://files.example.com/license.jpg",
		Type: "image/jpeg",
		Name: "license.jpg",
	})

	require.NoError(t, err)
	assert.False(t, result.IsBlurry)
	assert.Equal(t, extract.CategoryLicense, result.Category)
	assert.Equal(t, "011223071234", result.Fields["identity_no"])
}

func TestClient_Extract_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := extract.NewClient(server.URL, 0)
	_, err := client.Extract(context.Background(), domain.Attachment{URL: "x"})
	assert.Error(t, err)
}

func TestCategoryHelpers(t *testing.T) {
	assert.True(t, extract.IdentityCategory(extract.CategoryIDCard))
	assert.True(t, extract.IdentityCategory(extract.CategoryPassport))
	assert.False(t, extract.IdentityCategory(extract.CategoryLicense))

	assert.True(t, extract.ReceiptCategory(extract.CategoryReceipt))
	assert.True(t, extract.ReceiptCategory(extract.CategoryBankReceipt))
	assert.False(t, extract.ReceiptCategory(extract.CategoryTNBBill))
}
