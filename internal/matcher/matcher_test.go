package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPhoneNumbers(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "Plain ten digit number",
			text:     "call me at 7866669658 today",
			expected: []string{"7866669658"},
		},
		{
			name:     "Obfuscated with symbols",
			text:     "7@8#6*6&6*6*9%6(5#8",
			expected: []string{"7866669658"},
		},
		{
			name:     "Spaces and dashes between digits",
			text:     "98 76-54 32.10 is the number",
			expected: []string{"9876543210"},
		},
		{
			name:     "Country code prefix",
			text:     "reach me on +91 7866669658",
			expected: []string{"7866669658"},
		},
		{
			name:     "Country code without plus",
			text:     "917866669658",
			expected: []string{"7866669658"},
		},
		{
			name:     "Leading trunk zero",
			text:     "dial 0 9876543210",
			expected: []string{"9876543210"},
		},
		{
			name:     "First digit below six rejected",
			text:     "order id 5876543210",
			expected: nil,
		},
		{
			name:     "Eleven digit run rejected",
			text:     "12345678901",
			expected: nil,
		},
		{
			name:     "Ten digit span inside longer run rejected",
			text:     "98765432109876",
			expected: nil,
		},
		{
			name:     "Duplicates collapse in first-seen order",
			text:     "9876543210 or 7866669658 or 9876543210",
			expected: []string{"9876543210", "7866669658"},
		},
		{
			name:     "Letters break a run",
			text:     "room 98765 and pin 43210",
			expected: nil,
		},
		{
			name:     "Multiple numbers separated by words",
			text:     "primary 9876543210 backup 7012345678",
			expected: []string{"9876543210", "7012345678"},
		},
		{
			name: "Numbers separated only by whitespace merge and are rejected",
			// a twenty-digit run is not a valid number, and no
			// ten-digit window inside it may be reported
			text:     "9876543210 7012345678",
			expected: nil,
		},
		{
			name:     "No digits",
			text:     "contact me on whatsapp",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPhoneNumbers(tt.text))
		})
	}
}

func TestMatchKeywords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		phrases  []string
		expected []string
	}{
		{
			name:     "Case-insensitive containment",
			text:     "Call me on WhatsApp for the Price",
			phrases:  []string{"whatsapp", "price"},
			expected: []string{"whatsapp", "price"},
		},
		{
			name:     "Result follows the phrase list order",
			text:     "price first, whatsapp second",
			phrases:  []string{"whatsapp", "price"},
			expected: []string{"whatsapp", "price"},
		},
		{
			name:     "Multi-word phrase",
			text:     "genuine ivory FOR SALE, serious buyers only",
			phrases:  []string{"for sale", "ivory", "horn"},
			expected: []string{"for sale", "ivory"},
		},
		{
			name:     "Duplicate phrases collapse",
			text:     "ivory here",
			phrases:  []string{"ivory", "Ivory"},
			expected: []string{"ivory"},
		},
		{
			name:     "No matches",
			text:     "nice video, thanks for sharing",
			phrases:  []string{"ivory", "horn"},
			expected: nil,
		},
		{
			name:     "Empty phrase list",
			text:     "anything",
			phrases:  nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchKeywords(tt.text, tt.phrases))
		})
	}
}

func TestParseKeywordList(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{
			name:     "Comma separated with whitespace",
			raw:      "whatsapp, contact, call me, price",
			expected: []string{"whatsapp", "contact", "call me", "price"},
		},
		{
			name:     "Newlines also separate",
			raw:      "ivory\nhorn, scale",
			expected: []string{"ivory", "horn", "scale"},
		},
		{
			name:     "Case normalized and deduplicated",
			raw:      "Ivory, IVORY, horn",
			expected: []string{"ivory", "horn"},
		},
		{
			name:     "Empty items dropped",
			raw:      " , ivory, ,",
			expected: []string{"ivory"},
		},
		{
			name:     "Empty input",
			raw:      "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseKeywordList(tt.raw))
		})
	}
}

func TestScan(t *testing.T) {
	result := Scan("pangolin scales, WhatsApp 7866669658", []string{"pangolin", "whatsapp"})

	assert.True(t, result.Matched())
	assert.Equal(t, []string{"7866669658"}, result.PhoneNumbers)
	assert.Equal(t, []string{"pangolin", "whatsapp"}, result.Keywords)

	assert.False(t, Scan("great video", []string{"ivory"}).Matched())
}

func TestKeywordsForLanguage(t *testing.T) {
	assert.Contains(t, KeywordsForLanguage("en"), "pangolin")
	assert.Contains(t, KeywordsForLanguage("EN "), "ivory")
	assert.Nil(t, KeywordsForLanguage("xx"))
	assert.Equal(t, []string{"bn", "en", "hi", "ta", "te"}, Languages())
}
