package analysis

import "strings"

// Match statuses. Every analyzed case lands in exactly one.
const (
	StatusExactMatch       = "exact_match"
	StatusPartialMatch     = "partial_match"
	StatusNoMatch          = "no_match"
	StatusNoRecommendation = "no_recommendation"
)

// Classifier assigns a match status from a similarity score
type Classifier struct {
	exactThreshold   int
	partialThreshold int
}

func NewClassifier(exactThreshold, partialThreshold int) *Classifier {
	return &Classifier{
		exactThreshold:   exactThreshold,
		partialThreshold: partialThreshold,
	}
}

// Match is the outcome of classifying one prescription against its
// recommendation candidates.
type Match struct {
	Best   *string
	Score  int
	Status string
}

// Classify scores the actual prescription against each candidate and
// returns the best match. With no usable candidates the case is a
// no_recommendation. Ties keep the earliest candidate.
func (c *Classifier) Classify(actual string, candidates []string) Match {
	best := ""
	bestScore := -1
	usable := 0

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		usable++

		score := Score(actual, candidate)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if usable == 0 {
		return Match{Best: nil, Score: 0, Status: StatusNoRecommendation}
	}

	status := StatusNoMatch
	switch {
	case bestScore >= c.exactThreshold:
		status = StatusExactMatch
	case bestScore >= c.partialThreshold:
		status = StatusPartialMatch
	}

	return Match{Best: &best, Score: bestScore, Status: status}
}
