package analysis

import (
	"fmt"
	"strings"
	"testing"
)

func TestScoreIdenticalStrings(t *testing.T) {
	inputs := []string{
		"IV ceftriaxone 1g daily",
		"oral vancomycin 125mg qid",
		"meropenem",
	}
	for _, s := range inputs {
		if got := Score(s, s); got != 100 {
			t.Errorf("Score(%q, %q) = %d, want 100", s, s, got)
		}
	}
}

func TestScoreEmptyStrings(t *testing.T) {
	tests := []struct{ a, b string }{
		{"", ""},
		{"", "IV ceftriaxone 1g daily"},
		{"IV ceftriaxone 1g daily", ""},
		{"   ", "IV ceftriaxone 1g daily"},
	}
	for _, tt := range tests {
		if got := Score(tt.a, tt.b); got != 0 {
			t.Errorf("Score(%q, %q) = %d, want 0", tt.a, tt.b, got)
		}
	}
}

func TestScoreSymmetry(t *testing.T) {
	pairs := []struct{ a, b string }{
		{"IV ceftriaxone 1g daily", "IV ceftriaxone 1g once daily"},
		{"oral vancomycin 125mg qid", "IV meropenem 1g q8h"},
		{"zosyn 4.5g q8h", "piperacillin-tazobactam 4.5g q8h"},
		{"cefepime 2g", "ceftriaxone 2g"},
	}
	for _, tt := range pairs {
		ab := Score(tt.a, tt.b)
		ba := Score(tt.b, tt.a)
		if ab != ba {
			t.Errorf("Score(%q, %q) = %d but reversed = %d", tt.a, tt.b, ab, ba)
		}
	}
}

func TestScoreRange(t *testing.T) {
	pairs := []struct{ a, b string }{
		{"a", "b"},
		{"IV ceftriaxone 1g daily", "IV ceftriaxone 1g once daily"},
		{"meropenem", "meropenen"},
		{"x y z", "x y z"},
	}
	for _, tt := range pairs {
		got := Score(tt.a, tt.b)
		if got < 0 || got > 100 {
			t.Errorf("Score(%q, %q) = %d, out of [0, 100]", tt.a, tt.b, got)
		}
	}
}

func TestScoreSharedTokenMonotonicity(t *testing.T) {
	// Adding a shared token while holding sizes comparable raises the score
	reference := "ampicillin sulbactam 3g q6h"
	low := Score("ampicillin 3g", reference)
	high := Score("ampicillin sulbactam 3g", reference)
	if high <= low {
		t.Errorf("more shared tokens scored lower: %d <= %d", high, low)
	}
}

func TestScoreNearIdenticalPrescriptions(t *testing.T) {
	// Four of five tokens shared puts this well above the exact threshold
	got := Score("IV ceftriaxone 1g daily", "IV ceftriaxone 1g once daily")
	if got != 89 {
		t.Errorf("Score = %d, want 89", got)
	}
}

func TestScoreSynonymCanonicalization(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"zosyn 4.5g q8h", "piperacillin-tazobactam 4.5g q8h", 100},
		{"cipro 400mg", "ciprofloxacin 400mg", 100},
		{"vanco 1g q12h", "vancomycin 1g q12h", 100},
	}
	for _, tt := range tests {
		if got := Score(tt.a, tt.b); got != tt.want {
			t.Errorf("Score(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScoreCaseAndWhitespaceInsensitive(t *testing.T) {
	if got := Score("IV  Ceftriaxone   1G daily", "iv ceftriaxone 1g daily"); got != 100 {
		t.Errorf("Score = %d, want 100", got)
	}
}

func TestScoreDisjointTokensStaysBelowPartial(t *testing.T) {
	// With zero shared tokens the bigram fallback is capped at 30, which
	// can never reach the partial-match threshold.
	pairs := []struct{ a, b string }{
		{"oral vancomycin 125mg qid", "IV meropenem 1g q8h"},
		{"ceftriaxone", "ceftriaxon"},
		{"azithromycin 500mg", "doxycycline 100mg bid"},
	}
	for _, tt := range pairs {
		got := Score(tt.a, tt.b)
		if got > 30 {
			t.Errorf("Score(%q, %q) = %d, want <= 30", tt.a, tt.b, got)
		}
	}
}

func TestScoreBigramFallbackCatchesTypos(t *testing.T) {
	got := Score("ceftriaxone", "ceftriaxon")
	if got == 0 {
		t.Error("near-identical spellings scored 0, want a nonzero fallback score")
	}
	if got > 30 {
		t.Errorf("fallback score %d exceeds cap of 30", got)
	}
}

func TestScoreAgainstManyCandidates(t *testing.T) {
	// Scores must be stable: the same pair always produces the same value
	a := "IV ceftriaxone 1g daily"
	b := "IV ceftriaxone 2g daily"
	first := Score(a, b)
	for i := 0; i < 100; i++ {
		if got := Score(a, b); got != first {
			t.Fatalf("iteration %d: Score = %d, want %d", i, got, first)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  IV Ceftriaxone  1g  ", "iv ceftriaxone 1g"},
		{"Zosyn 4.5g", "piperacillin-tazobactam 4.5g"},
		{"", ""},
		{"   ", ""},
		{"vancomycin,", "vancomycin"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScoreLongPrescriptions(t *testing.T) {
	// Sanity check on larger inputs: fully contained token sets score by
	// the proportion of overlap, not by absolute length
	base := strings.Fields("iv piperacillin-tazobactam 4.5g q8h extended infusion for hap")
	full := strings.Join(base, " ")
	half := strings.Join(base[:4], " ")

	got := Score(half, full)
	want := 67 // 2*4/(4+8) = 0.667
	if got != want {
		t.Errorf("Score = %d, want %d", got, want)
	}
}

func ExampleScore() {
	fmt.Println(Score("IV ceftriaxone 1g daily", "IV ceftriaxone 1g once daily"))
	// Output: 89
}
