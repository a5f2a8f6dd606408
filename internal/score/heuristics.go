package score

import "strings"

// #region keywords

// Keyword families feeding narrative-weight estimation. Lexical matching
// is deliberately blunt; the pattern detector carries the semantic load.

var desireFearKeywords = []string{
	"want", "need", "scared", "afraid", "fear", "desire", "wish", "hope",
	"crave", "terrified", "confess", "admit",
}

var pastReferenceKeywords = []string{
	"remember", "before", "ago", "last time", "yesterday", "used to",
	"back then", "that night",
}

var decisionKeywords = []string{
	"should i", "what if", "choice", "decide", "option",
	"i'm about to", "im about to", "i can't stop", "cant stop",
}

var identityKeywords = []string{
	"i am", "i'm a", "im a", "my personality", "who i am",
	"i always", "i'm the kind of", "im the kind of",
}

// utilityKeywords mark task-shaped requests that belong to the tool
// layer, not the narrative layer.
var utilityKeywords = []string{
	"code", "write", "fix", "search", "create", "generate",
	"summarize", "translate",
}

// #endregion keywords

// #region extract

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractFlags runs the keyword families over a message.
func ExtractFlags(text string) Flags {
	lower := strings.ToLower(text)
	return Flags{
		DesireFearConfession: containsAny(lower, desireFearKeywords),
		ReferencesPast:       containsAny(lower, pastReferenceKeywords),
		DecisionPoint:        containsAny(lower, decisionKeywords),
		IdentityStatement:    containsAny(lower, identityKeywords),
	}
}

// IsUtilityRequest reports whether the message looks like a task request.
func IsUtilityRequest(text string) bool {
	return containsAny(strings.ToLower(text), utilityKeywords)
}

// #endregion extract
