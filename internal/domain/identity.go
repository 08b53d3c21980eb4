package domain

import (
	"context"
	"time"
)

// IdentityRecord holds the best-known identity fields for a user, gathered
// opportunistically from processed documents. Last write wins per field.
type IdentityRecord struct {
	UserID        string    `json:"user_id" bson:"_id"`
	IdentityNo    string    `json:"identity_no,omitempty" bson:"identity_no,omitempty"`
	LicenseNumber string    `json:"license_number,omitempty" bson:"license_number,omitempty"`
	AccountNumber string    `json:"account_number,omitempty" bson:"account_number,omitempty"`
	FullName      string    `json:"full_name,omitempty" bson:"full_name,omitempty"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// IdentityRepository defines the cross-session identity ledger. Updates are
// best-effort; a failed upsert is logged and never surfaced to the user.
type IdentityRepository interface {
	Upsert(ctx context.Context, userID string, fields map[string]string) error
	Get(ctx context.Context, userID string) (*IdentityRecord, error)
}
