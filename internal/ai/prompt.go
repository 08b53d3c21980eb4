package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildClassificationPrompt creates the intent classification prompt
func BuildClassificationPrompt(message string) string {
	return fmt.Sprintf(`You are an intent classification AI for a Malaysian government service assistant. Classify the user's request into exactly one of these intents: 'renew_license', 'pay_bill', 'check_status', 'confirm', or 'unknown'.

- Use 'renew_license' for requests about renewing, extending, or checking the validity of a driving license.
- Use 'pay_bill' for requests about paying electricity bills, fines, traffic tickets, or summons (saman).
- Use 'check_status' for requests asking about the current state of a license, bill, or payment.
- Use 'confirm' for short affirmative replies such as "yes", "correct", "that's right".
- Use 'unknown' for anything else, including greetings, chit-chat, or unrelated questions.

Also assign a topic: 'jpj' for driving license matters, 'tnb' for electricity bill matters, or omit the topic when neither applies.

Return ONLY valid JSON with this exact format:
{"intent": "one of the five intents", "topic": "jpj|tnb or omit", "confidence": 0.0 to 1.0}

User request: "%s"

Classification:`, message)
}

// ParseResult extracts a classification result from raw model output. Models
// sometimes wrap the JSON in prose or code fences; the first balanced object
// in the output is used.
func ParseResult(content string) (*Result, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in classifier output")
	}

	var res Result
	if err := json.Unmarshal([]byte(content[start:end+1]), &res); err != nil {
		return nil, fmt.Errorf("failed to parse classifier output: %w", err)
	}

	switch res.Intent {
	case IntentRenewLicense, IntentPayBill, IntentCheckStatus, IntentConfirm, IntentUnknown:
	default:
		res.Intent = IntentUnknown
	}

	switch res.Topic {
	case TopicJPJ, TopicTNB, "":
	default:
		res.Topic = ""
	}

	return &res, nil
}
