package ledger

import "context"

// Record update actions
const (
	ActionLicenseExtend = "license_extend"
	ActionBillPayment   = "tnb_payment"
)

// Services with beneficiary accounts
const (
	ServiceJPJ = "JPJ"
	ServiceTNB = "TNB"
)

// BeneficiaryAccount is one payment destination for a service
type BeneficiaryAccount struct {
	Name    string `json:"beneficiary_name" bson:"beneficiary_name"`
	Account string `json:"beneficiary_account" bson:"beneficiary_account"`
	Service string `json:"service" bson:"service"`
	QRLink  string `json:"qr_link,omitempty" bson:"qr_link,omitempty"`
	Active  bool   `json:"active" bson:"active"`
}

// Accounts defines the beneficiary account lookup collaborator
type Accounts interface {
	Lookup(ctx context.Context, service string) ([]BeneficiaryAccount, error)
}

// RecordResult is the outcome of a record update call
type RecordResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Records defines the backing record update collaborator. identityKey is the
// identity number or account number the record is looked up by.
type Records interface {
	Execute(ctx context.Context, identityKey, action string, params map[string]any) (*RecordResult, error)
}
