package matcher

import (
	"regexp"
	"sort"
	"strings"
)

// Result holds everything a single text matched.
type Result struct {
	PhoneNumbers []string
	Keywords     []string
}

// Matched reports whether the text produced any signal at all.
func (r Result) Matched() bool {
	return len(r.PhoneNumbers) > 0 || len(r.Keywords) > 0
}

// Scan runs phone-number extraction and keyword matching over one text.
func Scan(text string, phrases []string) Result {
	return Result{
		PhoneNumbers: ExtractPhoneNumbers(text),
		Keywords:     MatchKeywords(text, phrases),
	}
}

// phoneCandidateRe matches a maximal run of digits where whitespace,
// punctuation or symbol characters may sit between any two digits. Letters
// break a run, so digits on either side of a word are separate candidates.
// Because the run is maximal, a ten-digit span inside a longer digit run
// can never match on its own.
var phoneCandidateRe = regexp.MustCompile(`[0-9](?:[\s\p{P}\p{S}]*[0-9])+`)

// ExtractPhoneNumbers finds Indian mobile numbers in free text, tolerating
// deliberate obfuscation: "7@8#6*6&6*6*9%6(5#8" and "7866669658" yield the
// same canonical ten-digit string. An optional +91 country code and an
// optional leading 0 are stripped before validation. Duplicates are
// collapsed, first-seen order preserved.
func ExtractPhoneNumbers(text string) []string {
	var numbers []string
	seen := make(map[string]bool)

	for _, loc := range phoneCandidateRe.FindAllStringIndex(text, -1) {
		span := text[loc[0]:loc[1]]
		digits := stripNonDigits(span)

		canonical, ok := canonicalize(digits, hasPlusPrefix(text, loc[0]))
		if !ok {
			continue
		}
		if !seen[canonical] {
			seen[canonical] = true
			numbers = append(numbers, canonical)
		}
	}

	return numbers
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hasPlusPrefix walks backwards from the candidate's first digit over
// separator characters looking for a '+' country-code marker.
func hasPlusPrefix(text string, start int) bool {
	for i := start - 1; i >= 0; i-- {
		c := text[i]
		if c == '+' {
			return true
		}
		if c == ' ' || c == '-' || c == '.' || c == '(' || c == ')' {
			continue
		}
		return false
	}
	return false
}

// canonicalize reduces a digit string to the canonical ten-digit mobile
// form: strip a 91 country code (12 digits, or explicitly '+'-prefixed),
// then a single leading trunk 0, then require exactly ten digits starting
// with 6-9.
func canonicalize(digits string, plus bool) (string, bool) {
	if (len(digits) == 12 || plus) && strings.HasPrefix(digits, "91") && len(digits) >= 12 {
		digits = digits[2:]
	}
	if len(digits) == 11 && digits[0] == '0' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", false
	}
	if digits[0] < '6' || digits[0] > '9' {
		return "", false
	}
	return digits, true
}

// MatchKeywords returns the subset of phrases occurring in text as
// case-insensitive substrings. The result follows the order of the phrase
// list so it is deterministic, and duplicates in the phrase list collapse.
func MatchKeywords(text string, phrases []string) []string {
	if len(phrases) == 0 {
		return nil
	}

	lowered := strings.ToLower(text)
	var matched []string
	seen := make(map[string]bool)

	for _, phrase := range phrases {
		p := strings.ToLower(strings.TrimSpace(phrase))
		if p == "" || seen[p] {
			continue
		}
		if strings.Contains(lowered, p) {
			seen[p] = true
			matched = append(matched, p)
		}
	}

	return matched
}

// ParseKeywordList parses a user-supplied free-form keyword list: items
// separated by commas or newlines, whitespace-trimmed, lowercased,
// deduplicated in order.
func ParseKeywordList(raw string) []string {
	var phrases []string
	seen := make(map[string]bool)

	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		phrases = append(phrases, p)
	}

	return phrases
}

// Languages lists the language codes with a fixed keyword set, sorted.
func Languages() []string {
	langs := make([]string, 0, len(languageKeywords))
	for lang := range languageKeywords {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// KeywordsForLanguage returns the fixed phrase set for a language code,
// or nil if the code is unknown.
func KeywordsForLanguage(lang string) []string {
	return languageKeywords[strings.ToLower(strings.TrimSpace(lang))]
}
