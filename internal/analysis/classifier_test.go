package analysis

import "testing"

func newTestClassifier() *Classifier {
	return NewClassifier(80, 40)
}

func TestClassifyNoCandidates(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name       string
		candidates []string
	}{
		{"nil", nil},
		{"empty", []string{}},
		{"only blanks", []string{"", "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := c.Classify("IV ceftriaxone 1g daily", tt.candidates)
			if match.Status != StatusNoRecommendation {
				t.Errorf("Status = %q, want %q", match.Status, StatusNoRecommendation)
			}
			if match.Score != 0 {
				t.Errorf("Score = %d, want 0", match.Score)
			}
			if match.Best != nil {
				t.Errorf("Best = %v, want nil", *match.Best)
			}
		})
	}
}

func TestClassifyExactMatch(t *testing.T) {
	c := newTestClassifier()

	match := c.Classify("IV ceftriaxone 1g daily", []string{"IV ceftriaxone 1g once daily"})
	if match.Status != StatusExactMatch {
		t.Errorf("Status = %q, want %q", match.Status, StatusExactMatch)
	}
	if match.Score != 89 {
		t.Errorf("Score = %d, want 89", match.Score)
	}
	if match.Best == nil || *match.Best != "IV ceftriaxone 1g once daily" {
		t.Errorf("Best = %v", match.Best)
	}
}

func TestClassifyThresholdBoundaries(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name      string
		actual    string
		candidate string
		wantScore int
		want      string
	}{
		{
			// 2*4/(4+6) = 0.80 sits exactly on the exact threshold
			name:      "exactly 80 is exact",
			actual:    "a b c d",
			candidate: "a b c d e f",
			wantScore: 80,
			want:      StatusExactMatch,
		},
		{
			// 2*3/(4+4) = 0.75 just under the exact threshold
			name:      "75 is partial",
			actual:    "a b c d",
			candidate: "a b c x",
			wantScore: 75,
			want:      StatusPartialMatch,
		},
		{
			// 2*2/(2+8) = 0.40 sits exactly on the partial threshold
			name:      "exactly 40 is partial",
			actual:    "a b",
			candidate: "a b c d e f g h",
			wantScore: 40,
			want:      StatusPartialMatch,
		},
		{
			// 2*2/(2+9) = 0.364 just under the partial threshold
			name:      "36 is no match",
			actual:    "a b",
			candidate: "a b c d e f g h i",
			wantScore: 36,
			want:      StatusNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := c.Classify(tt.actual, []string{tt.candidate})
			if match.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", match.Score, tt.wantScore)
			}
			if match.Status != tt.want {
				t.Errorf("Status = %q, want %q", match.Status, tt.want)
			}
		})
	}
}

func TestClassifyPicksBestCandidate(t *testing.T) {
	c := newTestClassifier()

	match := c.Classify("IV ceftriaxone 1g daily", []string{
		"oral vancomycin 125mg qid",
		"IV ceftriaxone 1g once daily",
		"IV meropenem 1g q8h",
	})
	if match.Best == nil || *match.Best != "IV ceftriaxone 1g once daily" {
		t.Errorf("Best = %v, want the ceftriaxone candidate", match.Best)
	}
	if match.Status != StatusExactMatch {
		t.Errorf("Status = %q, want %q", match.Status, StatusExactMatch)
	}
}

func TestClassifyTieKeepsEarliestCandidate(t *testing.T) {
	c := newTestClassifier()

	// Both candidates share both tokens of the actual prescription and
	// add one extra token each, so they score identically.
	match := c.Classify("ceftriaxone 1g", []string{
		"ceftriaxone 1g iv",
		"ceftriaxone 1g daily",
	})
	if match.Best == nil || *match.Best != "ceftriaxone 1g iv" {
		t.Errorf("Best = %v, want the first of the tied candidates", match.Best)
	}
}

func TestClassifySkipsBlankCandidates(t *testing.T) {
	c := newTestClassifier()

	match := c.Classify("IV ceftriaxone 1g daily", []string{
		"",
		"IV ceftriaxone 1g once daily",
	})
	if match.Status != StatusExactMatch {
		t.Errorf("Status = %q, want %q", match.Status, StatusExactMatch)
	}
	if match.Best == nil || *match.Best != "IV ceftriaxone 1g once daily" {
		t.Errorf("Best = %v", match.Best)
	}
}

func TestClassifyBlankActualPrescription(t *testing.T) {
	c := newTestClassifier()

	// A blank actual prescription scores 0 against everything but the
	// case still has candidates, so it is a no_match, not a
	// no_recommendation.
	match := c.Classify("", []string{"IV ceftriaxone 1g daily"})
	if match.Status != StatusNoMatch {
		t.Errorf("Status = %q, want %q", match.Status, StatusNoMatch)
	}
	if match.Score != 0 {
		t.Errorf("Score = %d, want 0", match.Score)
	}
}
