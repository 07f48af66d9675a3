package recommendation

import (
	"context"
	"fmt"
	"strings"

	"github.com/stewardrx/platform/internal/patient"
)

// Recommendation statuses
const (
	StatusSuccess  = "success"
	StatusFallback = "fallback"
	StatusNoMatch  = "no_match"
	StatusError    = "error"
)

// Candidate is a single recommended antimicrobial regimen
type Candidate struct {
	Antibiotic string `json:"antibiotic"`
	Dose       string `json:"dose"`
	Frequency  string `json:"frequency"`
	Route      string `json:"route"`
	Rationale  string `json:"rationale,omitempty"`
}

// Text renders the candidate as a prescription line, the form the
// similarity scorer compares against actual prescriptions.
func (c Candidate) Text() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Route, c.Antibiotic, c.Dose, c.Frequency} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of a recommendation request for one patient
type Result struct {
	Status     string      `json:"status"`
	Candidates []Candidate `json:"recommendations"`
	Message    string      `json:"message,omitempty"`
}

// Texts returns the candidates as prescription lines
func (r Result) Texts() []string {
	texts := make([]string, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		texts = append(texts, c.Text())
	}
	return texts
}

// Provider produces antimicrobial recommendations for a patient
type Provider interface {
	Name() string
	Recommend(ctx context.Context, p *patient.Patient) (Result, error)
}

// effectiveCrCl returns the creatinine clearance used for dose
// selection. Missing or implausible values fall back to 60 mL/min.
func effectiveCrCl(p *patient.Patient) float64 {
	if p.CockcroftGaultCrCl == nil {
		return 60
	}
	crcl := *p.CockcroftGaultCrCl
	if crcl < 0 || crcl > 200 {
		return 60
	}
	return crcl
}

// patientSummary renders the clinical context handed to providers
func patientSummary(p *patient.Patient) string {
	var b strings.Builder
	fmt.Fprintf(&b, "patient %s", p.PatientID)
	if p.Age != nil {
		fmt.Fprintf(&b, ", age %d", *p.Age)
	}
	if p.Diagnosis1 != nil && *p.Diagnosis1 != "" {
		fmt.Fprintf(&b, ", diagnosis: %s", *p.Diagnosis1)
	}
	if p.Pathogen != nil && *p.Pathogen != "" {
		fmt.Fprintf(&b, ", pathogen: %s", *p.Pathogen)
	}
	fmt.Fprintf(&b, ", CrCl %.0f mL/min", effectiveCrCl(p))
	if p.Allergies != nil && *p.Allergies != "" {
		fmt.Fprintf(&b, ", allergies: %s", *p.Allergies)
	}
	return b.String()
}
