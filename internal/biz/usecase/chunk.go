package usecase

import "strings"

// DefaultChunkLimit keeps each message under typical chat platform limits
const DefaultChunkLimit = 3900

// SplitChunks splits text into pieces of at most limit runes, preferring
// paragraph boundaries. Paragraphs longer than limit are cut hard.
func SplitChunks(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var buf []rune
	flush := func() {
		if s := strings.TrimSpace(string(buf)); s != "" {
			chunks = append(chunks, s)
		}
		buf = buf[:0]
	}

	for _, para := range strings.Split(text, "\n\n") {
		p := []rune(strings.TrimSpace(para))
		if len(p) == 0 {
			continue
		}
		if len(buf) > 0 && len(buf)+2+len(p) <= limit {
			buf = append(buf, '\n', '\n')
			buf = append(buf, p...)
			continue
		}
		flush()
		for len(p) > limit {
			chunks = append(chunks, string(p[:limit]))
			p = p[limit:]
		}
		buf = append(buf, p...)
	}
	flush()
	return chunks
}
