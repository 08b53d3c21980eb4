package service

import (
	"fmt"
	"regexp"
)

// Extracted-field access. Extraction output is schemaless; these helpers
// try the key spellings the extraction service produces across document
// categories (English and Malay).
var (
	amountKeys    = []string{"amount", "amount_paid", "amount_due", "total", "total_due", "jumlah", "payment_amount"}
	referenceKeys = []string{"reference", "reference_no", "reference_id", "rujukan", "transaction_id"}
	identityKeys  = []string{"identity_no", "identity_number", "ic", "ic_number", "mykad"}
	licenseKeys   = []string{"license_number", "licence_number", "license_no"}
	accountKeys   = []string{"account_number", "account_no", "no_akaun"}
	nameKeys      = []string{"full_name", "name", "nama"}

	twelveDigits   = regexp.MustCompile(`^\d{12}$`)
	licensePattern = regexp.MustCompile(`^\d{7} [A-Za-z0-9]{8}$`)
)

func stringField(fields map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// amountFromFields finds a currency amount among extracted fields, accepting
// numeric values or strings like "RM 60.00".
func amountFromFields(fields map[string]any) (float64, bool) {
	for _, k := range amountKeys {
		v, ok := fields[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case string:
			if parsed, ok := ParseAmount(n); ok {
				return parsed, true
			}
		}
	}
	return 0, false
}

func referenceFromFields(fields map[string]any) string {
	if ref := stringField(fields, referenceKeys); ref != "" {
		return ref
	}
	return ""
}

// identityKeyFromFields picks the key the license record is looked up by:
// the 12-digit identity number when present, else the license number.
func identityKeyFromFields(fields map[string]any) string {
	if id := stringField(fields, identityKeys); twelveDigits.MatchString(id) {
		return id
	}
	if lic := stringField(fields, licenseKeys); lic != "" {
		return lic
	}
	return ""
}

func accountNumberFromFields(fields map[string]any) string {
	return stringField(fields, accountKeys)
}

// recognizeIdentityFields maps extracted document fields onto the identity
// ledger's field set. Values that don't match the expected patterns are
// skipped rather than stored wrong.
func recognizeIdentityFields(fields map[string]any) map[string]string {
	out := make(map[string]string)

	if id := stringField(fields, identityKeys); twelveDigits.MatchString(id) {
		out["identity_no"] = id
	}
	if lic := stringField(fields, licenseKeys); licensePattern.MatchString(lic) {
		out["license_number"] = lic
	}
	if acc := stringField(fields, accountKeys); twelveDigits.MatchString(acc) {
		out["account_number"] = acc
	}
	if name := stringField(fields, nameKeys); name != "" {
		out["full_name"] = name
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// fingerprint derives a stable identity for an inbound message so that a
// redelivery maps to the same message id and cached reply.
func fingerprint(userID, sessionID, createdAt, message, attachmentURL string) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", userID, sessionID, createdAt, message, attachmentURL)
}
