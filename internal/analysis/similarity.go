package analysis

import (
	"math"
	"strings"
)

// synonyms maps brand names and shorthand to canonical generic names so
// that "zosyn 4.5g" and "piperacillin-tazobactam 4.5g" compare as equal.
var synonyms = map[string]string{
	"cipro":     "ciprofloxacin",
	"zosyn":     "piperacillin-tazobactam",
	"pip-tazo":  "piperacillin-tazobactam",
	"pip/tazo":  "piperacillin-tazobactam",
	"augmentin": "amoxicillin-clavulanate",
	"amox-clav": "amoxicillin-clavulanate",
	"vanc":      "vancomycin",
	"vanco":     "vancomycin",
	"rocephin":  "ceftriaxone",
	"levo":      "levofloxacin",
	"levaquin":  "levofloxacin",
	"flagyl":    "metronidazole",
	"bactrim":   "trimethoprim-sulfamethoxazole",
	"tmp-smx":   "trimethoprim-sulfamethoxazole",
	"tmp/smx":   "trimethoprim-sulfamethoxazole",
	"zithromax": "azithromycin",
	"zyvox":     "linezolid",
	"merrem":    "meropenem",
	"maxipime":  "cefepime",
	"cubicin":   "daptomycin",
}

// Score compares two prescription strings and returns an integer
// similarity in [0, 100]. The comparison is symmetric: identical
// non-blank strings score 100, blank strings score 0 against anything.
func Score(a, b string) int {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	tokensA := tokenSet(na)
	tokensB := tokenSet(nb)

	shared := 0
	for token := range tokensA {
		if tokensB[token] {
			shared++
		}
	}

	if shared == 0 {
		// No shared tokens at all: fall back to character bigrams so
		// near-miss spellings still register, capped well below the
		// partial-match threshold.
		return bigramScore(na, nb)
	}

	dice := 2 * float64(shared) / float64(len(tokensA)+len(tokensB))
	return int(math.Round(dice * 100))
}

// normalize lowercases, canonicalizes synonyms and collapses whitespace
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var out []string
	for _, token := range strings.Fields(s) {
		token = strings.Trim(token, ".,;:()")
		if token == "" {
			continue
		}
		if canonical, ok := synonyms[token]; ok {
			token = canonical
		}
		out = append(out, token)
	}
	return strings.Join(out, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}

// bigramScore computes a character-bigram Dice coefficient scaled to a
// maximum of 30, so spelling variants never reach partial-match territory
// on their own.
func bigramScore(a, b string) int {
	bigramsA := bigrams(a)
	bigramsB := bigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0
	}

	shared := 0
	for bg := range bigramsA {
		if bigramsB[bg] {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}

	dice := 2 * float64(shared) / float64(len(bigramsA)+len(bigramsB))
	return int(math.Round(dice * 30))
}

func bigrams(s string) map[string]bool {
	s = strings.ReplaceAll(s, " ", "")
	set := make(map[string]bool)
	runes := []rune(s)
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = true
	}
	return set
}
