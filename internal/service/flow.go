package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rensmac/govassist/internal/domain"
	"github.com/rensmac/govassist/internal/ledger"
	"github.com/rs/zerolog/log"
)

// amountTolerance is the allowed difference between a receipt amount and the
// expected amount.
const amountTolerance = 0.01

// FlowController drives the license-renewal and bill-payment sub-flows
type FlowController struct {
	sessions  domain.SessionRepository
	accounts  ledger.Accounts
	records   ledger.Records
	unitPrice float64
	maxYears  int
}

// NewFlowController creates a new flow controller
func NewFlowController(
	sessions domain.SessionRepository,
	accounts ledger.Accounts,
	records ledger.Records,
	unitPrice float64,
	maxYears int,
) *FlowController {
	if maxYears <= 0 {
		maxYears = 5
	}
	return &FlowController{
		sessions:  sessions,
		accounts:  accounts,
		records:   records,
		unitPrice: unitPrice,
		maxYears:  maxYears,
	}
}

// Reset abandons the current flow cycle and returns the session to idle.
// The validated document stays in place; only the cycle's own fields clear.
func (f *FlowController) Reset(ctx context.Context, session *domain.Session) error {
	if session.FlowState == "" || session.FlowState == domain.FlowIdle {
		return nil
	}

	if err := f.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"flow_state":       domain.FlowIdle,
		"renewal_years":    0,
		"payment_amount":   0.0,
		"payment_verified": false,
		"receipt_data":     nil,
	}); err != nil {
		return fmt.Errorf("failed to reset flow: %w", err)
	}
	session.FlowState = domain.FlowIdle
	session.RenewalYears = 0
	session.PaymentAmount = 0
	session.PaymentVerified = false
	session.ReceiptData = nil

	return nil
}

// BeginRenewal moves a confirmed license session into year selection
func (f *FlowController) BeginRenewal(ctx context.Context, session *domain.Session) (string, error) {
	if !session.CanTransition(domain.FlowAwaitingYearSelection) {
		return replyGenericHelp, nil
	}

	if err := f.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"flow_state": domain.FlowAwaitingYearSelection,
	}); err != nil {
		return "", fmt.Errorf("failed to start renewal flow: %w", err)
	}
	session.FlowState = domain.FlowAwaitingYearSelection

	return replyYearPrompt, nil
}

// HandleYearSelection parses the user's year choice. An absent or
// out-of-range number re-prompts without mutating anything.
func (f *FlowController) HandleYearSelection(ctx context.Context, session *domain.Session, message string) (string, error) {
	years, ok := ParseYears(message)
	if !ok || years < 1 || years > f.maxYears {
		return replyYearRetry, nil
	}

	// Look up accounts before mutating so a lookup failure leaves the
	// session still awaiting year selection.
	accounts, err := f.accounts.Lookup(ctx, ledger.ServiceJPJ)
	if err != nil {
		return "", fmt.Errorf("beneficiary lookup failed: %w", err)
	}

	amount := float64(years) * f.unitPrice

	if err := f.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"renewal_years":  years,
		"payment_amount": amount,
		"flow_state":     domain.FlowAwaitingPaymentReceipt,
	}); err != nil {
		return "", fmt.Errorf("failed to record year selection: %w", err)
	}
	session.RenewalYears = years
	session.PaymentAmount = amount
	session.FlowState = domain.FlowAwaitingPaymentReceipt

	return accountsDisclosure(amount, accounts), nil
}

// BeginBillPayment computes the due amount from the confirmed bill and moves
// the session to awaiting a payment receipt. The amount is taken from the
// bill's extracted fields; there is no user-chosen quantity.
func (f *FlowController) BeginBillPayment(ctx context.Context, session *domain.Session) (string, error) {
	due, ok := amountFromFields(session.ExtractedData)
	if !ok {
		return replyBillAmountMissing, nil
	}

	accounts, err := f.accounts.Lookup(ctx, ledger.ServiceTNB)
	if err != nil {
		return "", fmt.Errorf("beneficiary lookup failed: %w", err)
	}

	if err := f.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"payment_amount": due,
		"flow_state":     domain.FlowAwaitingPaymentReceipt,
	}); err != nil {
		return "", fmt.Errorf("failed to start bill payment: %w", err)
	}
	session.PaymentAmount = due
	session.FlowState = domain.FlowAwaitingPaymentReceipt

	return accountsDisclosure(due, accounts), nil
}

// VerifyPayment checks a receipt against the expected amount. On a match the
// session reaches PAYMENT_VERIFIED (at most once per cycle) and the backing
// record is updated; the record call's outcome is reported separately from
// the amount match. Mismatch and parse failure preserve state for retry.
func (f *FlowController) VerifyPayment(ctx context.Context, session *domain.Session, receiptFields map[string]any) (string, error) {
	if !session.CanTransition(domain.FlowPaymentVerified) {
		return replyGenericHelp, nil
	}

	amount, ok := amountFromFields(receiptFields)
	if !ok {
		return replyReceiptParseFailure, nil
	}

	expected := session.PaymentAmount
	if math.Abs(amount-expected) > amountTolerance+1e-9 {
		return amountMismatchReply(expected, amount), nil
	}

	if err := f.sessions.UpsertFields(ctx, session.UserID, session.SessionID, map[string]any{
		"flow_state":       domain.FlowPaymentVerified,
		"payment_verified": true,
		"receipt_data":     receiptFields,
	}); err != nil {
		return "", fmt.Errorf("failed to record payment verification: %w", err)
	}
	session.FlowState = domain.FlowPaymentVerified
	session.PaymentVerified = true
	session.ReceiptData = receiptFields

	record := f.updateRecord(ctx, session, amount, receiptFields)
	return paymentVerifiedReply(amount, record), nil
}

// updateRecord calls the external record update for the completed payment. A
// failure here is reported in the reply, never propagated: the payment
// itself is already verified.
func (f *FlowController) updateRecord(ctx context.Context, session *domain.Session, amount float64, receiptFields map[string]any) *ledger.RecordResult {
	reference := referenceFromFields(receiptFields)

	var (
		key    string
		action string
		params map[string]any
	)

	if session.RenewalYears > 0 {
		key = identityKeyFromFields(session.ExtractedData)
		action = ledger.ActionLicenseExtend
		params = map[string]any{
			"extend_years":   session.RenewalYears,
			"payment_amount": amount,
			"reference_no":   reference,
		}
	} else {
		key = accountNumberFromFields(session.ExtractedData)
		action = ledger.ActionBillPayment
		params = map[string]any{
			"payment_amount": amount,
			"reference_no":   reference,
		}
	}

	if key == "" {
		log.Warn().
			Str("session_id", session.SessionID).
			Str("action", action).
			Msg("no identity key available for record update")
		return nil
	}

	result, err := f.records.Execute(ctx, key, action, params)
	if err != nil {
		log.Error().Err(err).
			Str("session_id", session.SessionID).
			Str("action", action).
			Msg("record update call failed")
		return nil
	}

	return result
}
