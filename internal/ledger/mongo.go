package ledger

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	accountsCollection     = "accounts"
	licensesCollection     = "licenses"
	billsCollection        = "tnb"
	transactionsCollection = "transactions"

	dateLayout = "2006-01-02"
)

// A 12-digit number is an identity number; anything else matching the
// license pattern (7 digits, space, 8 alphanumerics) is a license number.
var identityNoPattern = regexp.MustCompile(`^\d{12}$`)

// Store implements Accounts and Records against the government-services
// database collections.
type Store struct {
	db *mongo.Database
}

// NewStore creates a new ledger store
func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Lookup returns the active beneficiary accounts for a service
func (s *Store) Lookup(ctx context.Context, service string) ([]BeneficiaryAccount, error) {
	cursor, err := s.db.Collection(accountsCollection).Find(ctx, bson.M{
		"service": service,
		"active":  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []BeneficiaryAccount
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}

	return accounts, nil
}

// Execute dispatches a record update action
func (s *Store) Execute(ctx context.Context, identityKey, action string, params map[string]any) (*RecordResult, error) {
	switch action {
	case ActionLicenseExtend:
		return s.extendLicense(ctx, identityKey, params)
	case ActionBillPayment:
		return s.payBill(ctx, identityKey, params)
	default:
		return nil, fmt.Errorf("unknown record action: %s", action)
	}
}

func (s *Store) extendLicense(ctx context.Context, identityKey string, params map[string]any) (*RecordResult, error) {
	years := intParam(params, "extend_years", 1)

	query := bson.M{"license_number": identityKey}
	if identityNoPattern.MatchString(identityKey) {
		query = bson.M{"identity_no": identityKey}
	}

	coll := s.db.Collection(licensesCollection)

	var license struct {
		Status    string `bson:"status"`
		ValidFrom string `bson:"valid_from"`
		ValidTo   string `bson:"valid_to"`
	}
	if err := coll.FindOne(ctx, query).Decode(&license); err != nil {
		if err == mongo.ErrNoDocuments {
			return &RecordResult{Success: false, Message: "License not found"}, nil
		}
		return nil, fmt.Errorf("failed to find license: %w", err)
	}

	if license.Status == "suspended" {
		return &RecordResult{Success: false, Message: "License suspended. Please visit a physical branch."}, nil
	}

	now := time.Now()
	newValidFrom := license.ValidFrom
	var newValidTo string

	if license.Status == "expired" {
		newValidFrom = now.Format(dateLayout)
		newValidTo = now.AddDate(0, 0, 365*years).Format(dateLayout)
	} else {
		currentValidTo, err := time.Parse(dateLayout, license.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("invalid valid_to on license record: %w", err)
		}
		newValidTo = currentValidTo.AddDate(0, 0, 365*years).Format(dateLayout)
	}

	_, err := coll.UpdateOne(ctx, query, bson.M{"$set": bson.M{
		"valid_from": newValidFrom,
		"valid_to":   newValidTo,
		"status":     "active",
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to update license: %w", err)
	}

	if err := s.recordTransaction(ctx, params, ServiceJPJ); err != nil {
		return nil, err
	}

	return &RecordResult{
		Success: true,
		Message: fmt.Sprintf("License extended to %s", newValidTo),
	}, nil
}

func (s *Store) payBill(ctx context.Context, accountNo string, params map[string]any) (*RecordResult, error) {
	amount := floatParam(params, "payment_amount", 0)
	reference := stringParam(params, "reference_no", "MANUAL_PAYMENT")

	coll := s.db.Collection(billsCollection)
	query := bson.M{"bill.akaun.no_akaun": accountNo}

	var bill struct {
		Status string `bson:"status"`
		Bill   struct {
			Meta struct {
				BilSemasa struct {
					Jumlah float64 `bson:"jumlah"`
				} `bson:"bil_semasa"`
			} `bson:"meta"`
		} `bson:"bill"`
	}
	if err := coll.FindOne(ctx, query).Decode(&bill); err != nil {
		if err == mongo.ErrNoDocuments {
			return &RecordResult{Success: false, Message: "Bill not found"}, nil
		}
		return nil, fmt.Errorf("failed to find bill: %w", err)
	}

	if bill.Status == "paid" {
		return &RecordResult{Success: false, Message: "Bill already paid"}, nil
	}

	billAmount := bill.Bill.Meta.BilSemasa.Jumlah
	if amount == 0 {
		amount = billAmount
	}
	status := "partial"
	if amount >= billAmount {
		status = "paid"
	}

	_, err := coll.UpdateOne(ctx, query, bson.M{"$set": bson.M{
		"status": status,
		"pembayaran": bson.M{
			"jumlah":       amount,
			"tarikh_bayar": time.Now().Format(dateLayout),
			"cara":         "Online Banking",
			"rujukan":      reference,
		},
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	if err := s.recordTransaction(ctx, params, ServiceTNB); err != nil {
		return nil, err
	}

	return &RecordResult{
		Success: true,
		Message: fmt.Sprintf("Payment of RM%.2f recorded", amount),
	}, nil
}

// recordTransaction appends a transaction document for a settled payment
func (s *Store) recordTransaction(ctx context.Context, params map[string]any, serviceType string) error {
	reference := stringParam(params, "reference_no", uuid.New().String())
	today := time.Now().Format(dateLayout)

	doc := bson.M{
		"transaction_id":      "TXN_" + reference,
		"reference_id":        reference,
		"transaction_date":    today,
		"transaction_type":    "Payment",
		"amount":              floatParam(params, "payment_amount", 0),
		"currency":            "MYR",
		"fees":                0.0,
		"status":              "Successful",
		"beneficiary_name":    stringParam(params, "beneficiary_name", ""),
		"beneficiary_account": stringParam(params, "beneficiary_account", ""),
		"service_type":        serviceType,
		"created_at":          today,
	}

	if _, err := s.db.Collection(transactionsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func floatParam(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}
