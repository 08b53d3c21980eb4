package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rensmac/govassist/internal/ledger"
)

// Static reply templates. Wording is data, not logic; the brain only decides
// which template to send.
const (
	replyWelcome = "Welcome to the government services assistant. I can help you renew your driving license or pay your TNB bill. How can I help you today?"

	replyGreeting = "Hello! I can help you renew your driving license or pay your TNB bill. What would you like to do?"

	replyFarewell = "Thank you for using the government services assistant. Goodbye!"

	replyGenericHelp = "I can help you renew your driving license or pay your TNB bill. You can also ask me to check the status of your license or bill."

	replyNeedContext = "I'm not sure what you are confirming. Could you tell me more about what you need, or upload the relevant document?"

	replyUploadLicense = "To renew your driving license, please upload a photo of your driving license or identity card (MyKad)."

	replyUploadBill = "To pay your bill, please upload a photo of your TNB bill."

	replyUploadReminder = "I'm still waiting for your document. Please upload it as a photo, or say \"cancel\" to stop."

	replyBlurryDocument = "The image you uploaded is too blurry for me to read. Please take a clearer photo and upload it again."

	replyExtractionRetry = "Sorry, I couldn't process your document just now. Please try uploading it again."

	replyGateCancelled = "Okay, I've cancelled that request. Is there anything else I can help you with?"

	replyYearPrompt = "Thank you for confirming. How many years would you like to renew your license for? Please choose between 1 and 5 years."

	replyYearRetry = "Please reply with a number of years between 1 and 5."

	replyReceiptParseFailure = "I couldn't read a payment amount from that receipt. Please upload a clearer receipt showing the amount paid."

	replyAwaitingReceipt = "I'm still waiting for your payment receipt. Please upload it once you've made the transfer."

	replyBillAmountMissing = "I couldn't read the amount due from your bill. Please upload a clearer photo of the bill."

	replyDocumentConfirmed = "Thank you, your details are confirmed. How can I help you today?"

	replyCheckStatusNeedDocument = "To check your status, please upload your driving license, identity card, or TNB bill so I can look up your record."

	replyApology = "Sorry, something went wrong on my side. Please try again in a moment."
)

// confirmationPrompt enumerates extracted fields and asks for affirmation
func confirmationPrompt(category string, fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "I've read your %s. Please confirm these details:\n", categoryLabel(category))
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", fieldLabel(k), fields[k])
	}
	b.WriteString("\nIs everything correct? Reply \"yes\" to confirm.")
	return b.String()
}

// accountsDisclosure formats the beneficiary accounts for a payment step
func accountsDisclosure(amount float64, accounts []ledger.BeneficiaryAccount) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The amount to pay is RM%.2f. Please transfer to one of these accounts and upload your payment receipt:\n", amount)
	for _, a := range accounts {
		fmt.Fprintf(&b, "- %s: %s", a.Name, a.Account)
		if a.QRLink != "" {
			fmt.Fprintf(&b, " (QR: %s)", a.QRLink)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func paymentVerifiedReply(amount float64, record *ledger.RecordResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment of RM%.2f verified. ", amount)
	if record == nil {
		b.WriteString("However, I couldn't update your record right now. Your payment is confirmed; our back office will complete the update.")
	} else if record.Success {
		b.WriteString(record.Message)
	} else {
		fmt.Fprintf(&b, "However, the record update was not completed: %s", record.Message)
	}
	return b.String()
}

func amountMismatchReply(expected, got float64) string {
	return fmt.Sprintf(
		"The receipt shows RM%.2f but the expected amount is RM%.2f. Please check your payment and upload the correct receipt.",
		got, expected,
	)
}

func categoryLabel(category string) string {
	switch category {
	case "license":
		return "driving license"
	case "idcard":
		return "identity card"
	case "passport":
		return "passport"
	case "tnb_bill":
		return "TNB bill"
	case "receipt", "bank-receipt":
		return "payment receipt"
	default:
		return "document"
	}
}

func fieldLabel(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
