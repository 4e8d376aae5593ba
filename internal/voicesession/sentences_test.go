package voicesession

import (
	"strings"
	"testing"
)

func TestSentenceBuffer_IncompleteHeldBack(t *testing.T) {
	sb := NewSentenceBuffer()
	if got := sb.Add("Good morning"); len(got) != 0 {
		t.Errorf("incomplete sentence should be held, got %v", got)
	}
	if rest := sb.Flush(); rest != "Good morning" {
		t.Errorf("expected flushed remainder, got %q", rest)
	}
	if rest := sb.Flush(); rest != "" {
		t.Errorf("second flush should be empty, got %q", rest)
	}
}

func TestSentenceBuffer_EmitsCompleteSentence(t *testing.T) {
	sb := NewSentenceBuffer()
	sb.Add("It is time ")
	got := sb.Add("for your tablets.")
	if len(got) != 1 {
		t.Fatalf("expected one sentence, got %v", got)
	}
	if !strings.HasSuffix(got[0], "tablets.") {
		t.Errorf("unexpected sentence %q", got[0])
	}
	if again := sb.Add(""); len(again) != 0 {
		t.Errorf("sentence must not be emitted twice, got %v", again)
	}
}

func TestSentenceBuffer_KeepsOnlyUnemittedTail(t *testing.T) {
	sb := NewSentenceBuffer()

	got := sb.Add("Take one tablet. Then drink")
	if len(got) != 1 || strings.TrimSpace(got[0]) != "Take one tablet." {
		t.Fatalf("expected the first sentence, got %v", got)
	}
	if sb.pending != "Then drink" {
		t.Errorf("expected only the tail to be kept, got %q", sb.pending)
	}

	if got := sb.Add(" some "); len(got) != 0 {
		t.Errorf("fragment without a terminator should not emit, got %v", got)
	}
	got = sb.Add("water.")
	if len(got) != 1 || strings.TrimSpace(got[0]) != "Then drink some water." {
		t.Fatalf("expected the second sentence, got %v", got)
	}
	if sb.pending != "" {
		t.Errorf("expected an empty tail, got %q", sb.pending)
	}
}

func TestSentenceBuffer_Reset(t *testing.T) {
	sb := NewSentenceBuffer()
	sb.Add("Half a thought")
	sb.Reset()
	if rest := sb.Flush(); rest != "" {
		t.Errorf("expected empty after reset, got %q", rest)
	}
}

func TestEndsWithTerminator(t *testing.T) {
	tests := map[string]bool{
		"Hello.":        true,
		"Really?":       true,
		"Stop!":         true,
		`He said "hi."`: true,
		"Hello":         false,
		"":              false,
		"   ":           false,
	}
	for in, want := range tests {
		if got := endsWithTerminator(in); got != want {
			t.Errorf("endsWithTerminator(%q) = %v, want %v", in, got, want)
		}
	}
}
