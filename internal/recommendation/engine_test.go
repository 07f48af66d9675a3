package recommendation

import (
	"context"
	"testing"

	"github.com/stewardrx/platform/internal/patient"
)

type fakeRules struct {
	byBoth     []DosingRule
	byPathogen []DosingRule
	empiric    []DosingRule
}

func (f *fakeRules) FindByPathogenAndDiagnosis(_ context.Context, _, _ string) ([]DosingRule, error) {
	return f.byBoth, nil
}

func (f *fakeRules) FindByPathogen(_ context.Context, _ string) ([]DosingRule, error) {
	return f.byPathogen, nil
}

func (f *fakeRules) FindEmpiric(_ context.Context) ([]DosingRule, error) {
	return f.empiric, nil
}

func strPtr(s string) *string { return &s }
func fPtr(v float64) *float64 { return &v }

func rule(antibiotic, dose, freq string, minCrCl, maxCrCl float64, rank int) DosingRule {
	return DosingRule{
		Pathogen:   "e. coli",
		Antibiotic: antibiotic,
		Route:      "IV",
		Dose:       dose,
		Frequency:  freq,
		MinCrCl:    minCrCl,
		MaxCrCl:    maxCrCl,
		Rank:       rank,
	}
}

func testPatient() *patient.Patient {
	return &patient.Patient{
		PatientID:  "P-001",
		Name:       "Test Patient",
		Pathogen:   strPtr("E. coli"),
		Diagnosis1: strPtr("urinary tract infection"),
	}
}

func TestDosingEngineExactMatch(t *testing.T) {
	rules := &fakeRules{
		byBoth: []DosingRule{
			rule("ceftriaxone", "1g", "q24h", 0, 200, 0),
			rule("ciprofloxacin", "400mg", "q12h", 30, 200, 1),
		},
	}
	engine := NewDosingEngine(rules, 3)

	result, err := engine.Recommend(context.Background(), testPatient())
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if result.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", result.Status, StatusSuccess)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(result.Candidates))
	}
	if got := result.Candidates[0].Text(); got != "IV ceftriaxone 1g q24h" {
		t.Errorf("Text() = %q", got)
	}
}

func TestDosingEngineFallsBackToPathogen(t *testing.T) {
	rules := &fakeRules{
		byPathogen: []DosingRule{rule("ceftriaxone", "1g", "q24h", 0, 200, 0)},
	}
	engine := NewDosingEngine(rules, 3)

	result, err := engine.Recommend(context.Background(), testPatient())
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if result.Status != StatusFallback {
		t.Errorf("Status = %q, want %q", result.Status, StatusFallback)
	}
}

func TestDosingEngineEmpiric(t *testing.T) {
	rules := &fakeRules{
		empiric: []DosingRule{rule("piperacillin-tazobactam", "4.5g", "q8h", 0, 200, 0)},
	}
	engine := NewDosingEngine(rules, 3)

	p := testPatient()
	p.Pathogen = nil

	result, err := engine.Recommend(context.Background(), p)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if result.Status != StatusFallback {
		t.Errorf("Status = %q, want %q", result.Status, StatusFallback)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(result.Candidates))
	}
}

func TestDosingEngineNoMatch(t *testing.T) {
	engine := NewDosingEngine(&fakeRules{}, 3)

	result, err := engine.Recommend(context.Background(), testPatient())
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if result.Status != StatusNoMatch {
		t.Errorf("Status = %q, want %q", result.Status, StatusNoMatch)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("got %d candidates, want 0", len(result.Candidates))
	}
}

func TestDosingEngineRenalFilter(t *testing.T) {
	rules := &fakeRules{
		byBoth: []DosingRule{
			rule("ciprofloxacin", "400mg", "q12h", 30, 200, 0),
			rule("ciprofloxacin", "200mg", "q12h", 0, 30, 1),
		},
	}
	engine := NewDosingEngine(rules, 3)

	p := testPatient()
	p.CockcroftGaultCrCl = fPtr(20)

	result, err := engine.Recommend(context.Background(), p)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(result.Candidates))
	}
	if result.Candidates[0].Dose != "200mg" {
		t.Errorf("Dose = %q, want renally adjusted 200mg", result.Candidates[0].Dose)
	}
}

func TestDosingEngineCrClDefaults(t *testing.T) {
	// Implausible CrCl readings fall back to 60 mL/min
	tests := []struct {
		name string
		crcl *float64
	}{
		{"missing", nil},
		{"negative", fPtr(-5)},
		{"out of range", fPtr(350)},
	}

	rules := &fakeRules{
		byBoth: []DosingRule{rule("ceftriaxone", "1g", "q24h", 50, 200, 0)},
	}
	engine := NewDosingEngine(rules, 3)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPatient()
			p.CockcroftGaultCrCl = tt.crcl

			result, err := engine.Recommend(context.Background(), p)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			// default 60 is inside the 50-200 window
			if len(result.Candidates) != 1 {
				t.Errorf("got %d candidates, want 1", len(result.Candidates))
			}
		})
	}
}

func TestDosingEngineSkipsAllergies(t *testing.T) {
	rules := &fakeRules{
		byBoth: []DosingRule{
			rule("ciprofloxacin", "400mg", "q12h", 0, 200, 0),
			rule("ceftriaxone", "1g", "q24h", 0, 200, 1),
		},
	}
	engine := NewDosingEngine(rules, 3)

	p := testPatient()
	p.Allergies = strPtr("Ciprofloxacin (rash)")

	result, err := engine.Recommend(context.Background(), p)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(result.Candidates))
	}
	if result.Candidates[0].Antibiotic != "ceftriaxone" {
		t.Errorf("Antibiotic = %q, want the non-allergenic alternative", result.Candidates[0].Antibiotic)
	}
}

func TestDosingEngineCapsCandidates(t *testing.T) {
	rules := &fakeRules{
		byBoth: []DosingRule{
			rule("a", "1g", "q24h", 0, 200, 0),
			rule("b", "1g", "q24h", 0, 200, 1),
			rule("c", "1g", "q24h", 0, 200, 2),
			rule("d", "1g", "q24h", 0, 200, 3),
		},
	}
	engine := NewDosingEngine(rules, 3)

	result, err := engine.Recommend(context.Background(), testPatient())
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(result.Candidates) != 3 {
		t.Errorf("got %d candidates, want 3", len(result.Candidates))
	}
}

func TestCandidateText(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		want      string
	}{
		{
			"full",
			Candidate{Antibiotic: "ceftriaxone", Dose: "1g", Frequency: "q24h", Route: "IV"},
			"IV ceftriaxone 1g q24h",
		},
		{
			"no route",
			Candidate{Antibiotic: "amoxicillin", Dose: "500mg", Frequency: "tid"},
			"amoxicillin 500mg tid",
		},
		{
			"antibiotic only",
			Candidate{Antibiotic: "vancomycin"},
			"vancomycin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.candidate.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}
