package usecase

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultMaxSentences is the sentence budget of a reply
const DefaultMaxSentences = 3

const fence = "```"

var (
	codeBlockRe   = regexp.MustCompile("(?s)```[^\\n`]*\\n?.*?```")
	sentenceEndRe = regexp.MustCompile(`[.!?]+(?:[\s\v\p{Z}\x{85}]+|$)`)
	blankRunRe    = regexp.MustCompile(`[ \t]{2,}`)
)

// SanitizerConfig holds the fixed phrases of the reply pipeline
type SanitizerConfig struct {
	CodeRefusal        string
	SelfIdentification string
	EmptyReply         string
	MaxSentences       int
}

// ReplySanitizer enforces output policy on raw model replies
type ReplySanitizer struct {
	cfg    SanitizerConfig
	topic  *TopicFilter
	selfID *regexp.Regexp
}

// NewReplySanitizer creates a sanitizer; topic decides which prompts ask who the bot is
func NewReplySanitizer(cfg SanitizerConfig, topic *TopicFilter) *ReplySanitizer {
	if cfg.MaxSentences < 1 {
		cfg.MaxSentences = DefaultMaxSentences
	}
	if cfg.EmptyReply == "" {
		cfg.EmptyReply = "(empty reply)"
	}
	s := &ReplySanitizer{cfg: cfg, topic: topic}
	// terminal punctuation is matched loosely so "...model!" and "...model." both go
	if phrase := strings.TrimRight(strings.TrimSpace(cfg.SelfIdentification), ".!? "); phrase != "" {
		s.selfID = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase) + `[.!?]*`)
	}
	return s
}

// Sanitize applies, in order: code block replacement, conditional removal of
// the self-identification sentence, the sentence budget and the empty-reply
// placeholder. Sanitize(Sanitize(x, p), p) == Sanitize(x, p).
func (s *ReplySanitizer) Sanitize(raw, prompt string) string {
	text := s.stripCode(raw)

	if s.selfID != nil && !s.topic.IsIdentityQuestion(prompt) && s.selfID.MatchString(text) {
		for s.selfID.MatchString(text) {
			text = s.selfID.ReplaceAllString(text, "")
		}
		text = blankRunRe.ReplaceAllString(text, " ")
	}

	if sentences := splitSentences(text); len(sentences) > s.cfg.MaxSentences {
		text = strings.Join(sentences[:s.cfg.MaxSentences], ". ") + "."
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return s.cfg.EmptyReply
	}
	return text
}

// stripCode replaces fenced blocks with the refusal phrase. An unterminated
// fence swallows the rest of the reply.
func (s *ReplySanitizer) stripCode(text string) string {
	if !strings.Contains(text, fence) {
		return text
	}
	text = codeBlockRe.ReplaceAllLiteralString(text, s.cfg.CodeRefusal)
	if i := strings.Index(text, fence); i >= 0 {
		text = text[:i] + s.cfg.CodeRefusal
	}
	return text
}

// Cap truncates text to at most limit characters, marking the cut with an
// ellipsis. A limit of zero or less disables the cap.
func (s *ReplySanitizer) Cap(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	cut := strings.TrimRightFunc(string(runes[:limit-1]), unicode.IsSpace)
	return cut + "…"
}

// splitSentences splits on runs of . ? ! followed by whitespace or the end of
// text. Terminators are dropped and empty pieces skipped.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		if piece := strings.TrimSpace(text[start:loc[0]]); piece != "" {
			out = append(out, piece)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
