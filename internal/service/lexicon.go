package service

import (
	"regexp"
	"strconv"
	"strings"
)

// Phrase tables driving the router's lexical guards. Matching is
// prefix-based after normalization, so "hello there" matches "hello" but
// "hello-world.com is down" does not match on a word boundary basis.
var (
	greetingPhrases = []string{
		"hi",
		"hello",
		"hey",
		"good morning",
		"good afternoon",
		"good evening",
		"salam",
		"assalamualaikum",
		"selamat pagi",
		"selamat petang",
	}

	farewellPhrases = []string{
		"bye",
		"goodbye",
		"good bye",
		"see you",
		"that's all",
		"thats all",
		"thank you bye",
		"terima kasih",
		"selamat tinggal",
	}

	affirmativePhrases = []string{
		"yes",
		"yup",
		"yeah",
		"ya",
		"correct",
		"confirm",
		"confirmed",
		"betul",
		"ok",
		"okay",
		"sure",
		"that's right",
		"thats right",
	}

	exitPhrases = []string{
		"cancel",
		"stop",
		"exit",
		"quit",
		"restart",
		"start over",
		"batal",
		"never mind",
		"nevermind",
	}
)

var (
	yearPattern = regexp.MustCompile(`-?\d+`)
	// Matches "RM 60.00", "RM60", "rm 45.5" and bare decimals
	currencyPattern = regexp.MustCompile(`(?i)rm\s*(\d+(?:\.\d{1,2})?)`)
	numberPattern   = regexp.MustCompile(`\d+(?:\.\d{1,2})?`)

	nonWordEdges = regexp.MustCompile(`^[^\p{L}\p{N}]+|[^\p{L}\p{N}]+$`)
)

func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return nonWordEdges.ReplaceAllString(text, "")
}

// matchesPhrase reports whether the normalized message starts with any phrase
// in the table, on a word boundary.
func matchesPhrase(table []string, message string) bool {
	msg := normalize(message)
	if msg == "" {
		return false
	}
	for _, p := range table {
		if msg == p || strings.HasPrefix(msg, p+" ") || strings.HasPrefix(msg, p+",") {
			return true
		}
	}
	return false
}

// containsPhrase reports whether any phrase in the table appears in the
// message as a whole word sequence.
func containsPhrase(table []string, message string) bool {
	msg := " " + normalize(message) + " "
	for _, p := range table {
		if strings.Contains(msg, " "+p+" ") || strings.Contains(msg, " "+p+", ") {
			return true
		}
	}
	return false
}

// IsGreeting reports whether a message is a greeting
func IsGreeting(message string) bool {
	return matchesPhrase(greetingPhrases, message)
}

// IsFarewell reports whether a message is a conversation-ending phrase
func IsFarewell(message string) bool {
	return matchesPhrase(farewellPhrases, message)
}

// IsAffirmative reports whether a message contains an affirmative entry
func IsAffirmative(message string) bool {
	return containsPhrase(affirmativePhrases, message)
}

// IsExitCommand reports whether a message is an exit or restart command
func IsExitCommand(message string) bool {
	return matchesPhrase(exitPhrases, message)
}

// ParseYears extracts the first integer in a reply. The boolean is false when
// no integer is present.
func ParseYears(message string) (int, bool) {
	m := yearPattern.FindString(message)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseAmount extracts a currency amount from text, preferring an explicit
// "RM" prefix over a bare number.
func ParseAmount(text string) (float64, bool) {
	if m := currencyPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	if m := numberPattern.FindString(text); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
