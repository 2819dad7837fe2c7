// Package emotion maintains the closed vocabulary of emotional tags used to
// color synthesized speech, and resolves the effective tag for an utterance.
//
// The vocabulary and preset tables are loaded once at startup and are
// read-only for the process lifetime, so every function here is safe for
// concurrent use without locking.
package emotion

import (
	"strings"

	"github.com/helioscale/voicekit/logger"
)

// Neutral is the default tag returned when nothing more specific applies.
const Neutral = "neutral"

// tags is the closed vocabulary. Membership is fixed for the process
// lifetime; adding a tag is a code change, not configuration.
var tags = []string{
	Neutral,
	"happy",
	"excited",
	"enthusiastic",
	"cheerful",
	"joyful",
	"content",
	"satisfied",
	"grateful",
	"hopeful",
	"optimistic",
	"confident",
	"proud",
	"empathetic",
	"sympathetic",
	"compassionate",
	"caring",
	"warm",
	"friendly",
	"welcoming",
	"polite",
	"professional",
	"calm",
	"relaxed",
	"soothing",
	"reassuring",
	"encouraging",
	"supportive",
	"apologetic",
	"regretful",
	"concerned",
	"worried",
	"anxious",
	"nervous",
	"sad",
	"disappointed",
	"frustrated",
	"annoyed",
	"stern",
	"serious",
	"urgent",
	"assertive",
	"persuasive",
	"curious",
	"interested",
	"surprised",
	"amazed",
	"thoughtful",
	"sincere",
	"earnest",
	"patient",
	"understanding",
	"respectful",
	"playful",
	"energetic",
	"determined",
	"attentive",
}

var tagSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}()

// Vocabulary returns a copy of the full tag vocabulary.
func Vocabulary() []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// IsValid reports whether tag is a member of the vocabulary.
func IsValid(tag string) bool {
	_, ok := tagSet[tag]
	return ok
}

// Validate returns tag unchanged when it is a vocabulary member, otherwise
// logs a warning and returns Neutral. Every tag that reaches an upstream
// provider passes through here first, so no invalid tag is ever sent over
// the wire.
func Validate(tag string) string {
	if IsValid(tag) {
		return tag
	}
	logger.Warn("invalid emotion tag, defaulting to neutral", "tag", tag)
	return Neutral
}

// keywordEntry pairs a tag with the keywords that select it during free-text
// detection. Entries are scanned in order and the first entry with any
// matching keyword wins, so ordering is a deterministic tie-break.
type keywordEntry struct {
	tag      string
	keywords []string
}

var keywordTable = []keywordEntry{
	{"apologetic", []string{"sorry", "apolog", "my mistake", "regret"}},
	{"grateful", []string{"thank you", "thanks", "appreciate"}},
	{"excited", []string{"great news", "congratulations", "amazing", "incredible", "fantastic"}},
	{"urgent", []string{"urgent", "immediately", "right away", "as soon as possible"}},
	{"concerned", []string{"problem", "issue", "trouble", "worried"}},
	{"reassuring", []string{"don't worry", "rest assured", "we've got you"}},
	{"confident", []string{"guarantee", "certainly", "absolutely", "definitely"}},
	{"happy", []string{"glad", "pleased", "happy", "delighted"}},
	{"sad", []string{"unfortunately", "bad news", "sadly"}},
	{"curious", []string{"wondering", "curious", "tell me more"}},
	{"friendly", []string{"welcome", "hello", "good morning", "good afternoon"}},
}

// DetectFromText scans the keyword table against text and returns the tag of
// the first entry with a matching keyword. Matching is case-insensitive
// substring; repeated calls with the same text always return the same tag.
// Returns Neutral when nothing matches.
func DetectFromText(text string) string {
	lowered := strings.ToLower(text)
	for _, entry := range keywordTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.tag
			}
		}
	}
	return Neutral
}
