package usecase

import (
	"regexp"
	"strings"
)

// TopicConfig holds the classifier vocabulary
type TopicConfig struct {
	DomainTerms        []string
	ConfusionMarkers   []string
	CodeRequestPhrases []string
	TriggerKeywords    []string
	BanterKeywords     []string
	IdentityPhrases    []string
}

// TopicFilter classifies message text against a static vocabulary.
// Every method is a pure function of its input.
type TopicFilter struct {
	domain    *regexp.Regexp
	triggers  *regexp.Regexp
	confusion []string
	code      []string
	banter    []string
	identity  []string
}

// NewTopicFilter compiles the vocabulary
func NewTopicFilter(cfg TopicConfig) *TopicFilter {
	return &TopicFilter{
		domain:    compileWords(cfg.DomainTerms),
		triggers:  compileWords(cfg.TriggerKeywords),
		confusion: lowerAll(cfg.ConfusionMarkers),
		code:      lowerAll(cfg.CodeRequestPhrases),
		banter:    lowerAll(cfg.BanterKeywords),
		identity:  lowerAll(cfg.IdentityPhrases),
	}
}

// IsInDomain reports whether text contains a domain term as a whole word
func (f *TopicFilter) IsInDomain(text string) bool {
	return f.domain != nil && f.domain.MatchString(text)
}

// LooksLikeQuestionOrConfusion reports a question mark or a confusion marker
func (f *TopicFilter) LooksLikeQuestionOrConfusion(text string) bool {
	if strings.ContainsAny(text, "?？") {
		return true
	}
	return containsAny(text, f.confusion)
}

// IsCodeRequest reports whether text asks for program code
func (f *TopicFilter) IsCodeRequest(text string) bool {
	return containsAny(text, f.code)
}

// MatchesTrigger reports whether text contains a trigger keyword as a whole word
func (f *TopicFilter) MatchesTrigger(text string) bool {
	return f.triggers != nil && f.triggers.MatchString(text)
}

// IsBanter reports playful chatter
func (f *TopicFilter) IsBanter(text string) bool {
	return containsAny(text, f.banter)
}

// IsIdentityQuestion reports a "who are you" style question
func (f *TopicFilter) IsIdentityQuestion(text string) bool {
	return containsAny(text, f.identity)
}

// compileWords builds one case-insensitive whole-word alternation.
// Letters and digits of any script count as word characters; spaces inside
// a term match any run of whitespace.
func compileWords(terms []string) *regexp.Regexp {
	var alts []string
	for _, term := range terms {
		fields := strings.Fields(term)
		if len(fields) == 0 {
			continue
		}
		for i, f := range fields {
			fields[i] = regexp.QuoteMeta(f)
		}
		alts = append(alts, strings.Join(fields, `\s+`))
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(alts, "|") + `)(?:$|[^\p{L}\p{N}_])`)
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(text string, lowered []string) bool {
	if len(lowered) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, s := range lowered {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
