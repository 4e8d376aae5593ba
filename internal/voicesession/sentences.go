package voicesession

import (
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
)

// SentenceBuffer assembles streamed text fragments into whole sentences for
// transcript consumers. Only the text after the last emitted sentence is kept
// and segmented.
type SentenceBuffer struct {
	mu      sync.Mutex
	pending string
}

func NewSentenceBuffer() *SentenceBuffer {
	return &SentenceBuffer{}
}

func (sb *SentenceBuffer) Add(fragment string) []string {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.pending += fragment
	if !strings.ContainsAny(fragment, ".!?") {
		return nil
	}

	sentences, hasIncomplete := segment(sb.pending)
	complete := len(sentences)
	if hasIncomplete {
		complete--
	}
	if complete <= 0 {
		return nil
	}

	out := sentences[:complete]
	sb.pending = remainder(sb.pending, out, sentences[complete:])
	return out
}

func (sb *SentenceBuffer) Flush() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	text := strings.TrimSpace(sb.pending)
	sb.pending = ""
	return text
}

func (sb *SentenceBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.pending = ""
}

// remainder cuts the emitted sentences off the front of text. The tail keeps
// its trailing whitespace so the next fragment joins it unchanged.
func remainder(text string, emitted, rest []string) string {
	cursor := 0
	for _, sentence := range emitted {
		idx := strings.Index(text[cursor:], sentence)
		if idx < 0 {
			return strings.Join(rest, " ")
		}
		cursor += idx + len(sentence)
	}
	tail := text[cursor:]
	if strings.TrimSpace(tail) == "" {
		return ""
	}
	return strings.TrimLeft(tail, " \t\n\r")
}

func segment(text string) ([]string, bool) {
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, false
	}

	sentences := doc.Sentences()
	if len(sentences) == 0 {
		return nil, true
	}

	result := make([]string, len(sentences))
	for i, s := range sentences {
		result[i] = s.Text
	}
	return result, !endsWithTerminator(result[len(result)-1])
}

func endsWithTerminator(s string) bool {
	s = strings.TrimRight(s, " \t\n\r\"')")
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
