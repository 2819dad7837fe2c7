package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabulary_Size(t *testing.T) {
	assert.Len(t, Vocabulary(), 57)
}

func TestVocabulary_NoDuplicates(t *testing.T) {
	seen := make(map[string]bool)
	for _, tag := range Vocabulary() {
		assert.False(t, seen[tag], "duplicate tag %q", tag)
		seen[tag] = true
	}
}

func TestValidate_PassThrough(t *testing.T) {
	for _, tag := range Vocabulary() {
		assert.Equal(t, tag, Validate(tag))
	}
}

func TestValidate_UnknownDefaultsToNeutral(t *testing.T) {
	for _, tag := range []string{"ecstatic", "EXCITED", "confident ", "", "42"} {
		assert.Equal(t, Neutral, Validate(tag), "tag %q", tag)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	assert.Equal(t, Validate("bogus"), Validate(Validate("bogus")))
	assert.Equal(t, Validate("warm"), Validate(Validate("warm")))
}

func TestDetectFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"apology", "I'm sorry for the delay", "apologetic"},
		{"apology case-insensitive", "WE APOLOGIZE for the outage", "apologetic"},
		{"good news", "Great news about your solar project!", "excited"},
		{"gratitude", "Thanks so much for your time today", "grateful"},
		{"urgency", "We need your meter reading right away", "urgent"},
		{"greeting", "Hello there, how can I help?", "friendly"},
		{"no keywords", "Your panels produced 38 kWh yesterday.", Neutral},
		{"empty", "", Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFromText(tt.text))
		})
	}
}

func TestDetectFromText_Deterministic(t *testing.T) {
	// "sorry" (apologetic) and "thank you" (grateful) both match; the first
	// table entry wins regardless of keyword position or length.
	text := "Thank you for waiting, and sorry again for the mix-up."
	first := DetectFromText(text)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, DetectFromText(text))
	}
	assert.Equal(t, "apologetic", first)
}

func TestKeywordTable_TagsAreValid(t *testing.T) {
	for _, entry := range keywordTable {
		assert.True(t, IsValid(entry.tag), "keyword table names unknown tag %q", entry.tag)
		assert.NotEmpty(t, entry.keywords)
	}
}
