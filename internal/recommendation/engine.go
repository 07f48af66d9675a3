package recommendation

import (
	"context"
	"fmt"
	"strings"

	"github.com/stewardrx/platform/internal/patient"
)

// RuleSource supplies dosing rules to the engine
type RuleSource interface {
	FindByPathogenAndDiagnosis(ctx context.Context, pathogen, diagnosis string) ([]DosingRule, error)
	FindByPathogen(ctx context.Context, pathogen string) ([]DosingRule, error)
	FindEmpiric(ctx context.Context) ([]DosingRule, error)
}

// DosingEngine recommends regimens from the dosing reference table.
// Lookup degrades progressively: pathogen plus diagnosis, then pathogen
// alone, then empiric broad-spectrum rules.
type DosingEngine struct {
	rules         RuleSource
	maxCandidates int
}

func NewDosingEngine(rules RuleSource, maxCandidates int) *DosingEngine {
	if maxCandidates <= 0 {
		maxCandidates = 3
	}
	return &DosingEngine{rules: rules, maxCandidates: maxCandidates}
}

func (e *DosingEngine) Name() string { return "dosing" }

// Recommend returns up to maxCandidates regimens for the patient
func (e *DosingEngine) Recommend(ctx context.Context, p *patient.Patient) (Result, error) {
	crcl := effectiveCrCl(p)

	allergies := ""
	if p.Allergies != nil {
		allergies = strings.ToLower(*p.Allergies)
	}

	pathogen := ""
	if p.Pathogen != nil {
		pathogen = *p.Pathogen
	}
	diagnosis := ""
	if p.Diagnosis1 != nil {
		diagnosis = *p.Diagnosis1
	}

	// Exact lookup: pathogen and diagnosis together
	if pathogen != "" && diagnosis != "" {
		rules, err := e.rules.FindByPathogenAndDiagnosis(ctx, pathogen, diagnosis)
		if err != nil {
			return Result{Status: StatusError}, fmt.Errorf("dosing lookup failed: %w", err)
		}
		if candidates := e.eligible(rules, crcl, allergies); len(candidates) > 0 {
			return Result{Status: StatusSuccess, Candidates: candidates}, nil
		}
	}

	// Fallback: pathogen alone
	if pathogen != "" {
		rules, err := e.rules.FindByPathogen(ctx, pathogen)
		if err != nil {
			return Result{Status: StatusError}, fmt.Errorf("dosing lookup failed: %w", err)
		}
		if candidates := e.eligible(rules, crcl, allergies); len(candidates) > 0 {
			status := StatusSuccess
			if diagnosis != "" {
				status = StatusFallback
			}
			return Result{Status: status, Candidates: candidates}, nil
		}
	}

	// Last resort: empiric broad-spectrum therapy
	rules, err := e.rules.FindEmpiric(ctx)
	if err != nil {
		return Result{Status: StatusError}, fmt.Errorf("dosing lookup failed: %w", err)
	}
	if candidates := e.eligible(rules, crcl, allergies); len(candidates) > 0 {
		return Result{
			Status:     StatusFallback,
			Candidates: candidates,
			Message:    "no pathogen-specific rules matched, empiric therapy suggested",
		}, nil
	}

	return Result{
		Status:  StatusNoMatch,
		Message: fmt.Sprintf("no dosing rules for %s", patientSummary(p)),
	}, nil
}

// eligible filters rules by the renal dose window and documented
// allergies, then converts the top ranked ones to candidates.
func (e *DosingEngine) eligible(rules []DosingRule, crcl float64, allergies string) []Candidate {
	var candidates []Candidate
	for _, rule := range rules {
		if crcl < rule.MinCrCl || crcl > rule.MaxCrCl {
			continue
		}
		if allergies != "" && strings.Contains(allergies, strings.ToLower(rule.Antibiotic)) {
			continue
		}
		c := Candidate{
			Antibiotic: rule.Antibiotic,
			Dose:       rule.Dose,
			Frequency:  rule.Frequency,
			Route:      rule.Route,
		}
		if rule.Notes != nil {
			c.Rationale = *rule.Notes
		}
		candidates = append(candidates, c)
		if len(candidates) == e.maxCandidates {
			break
		}
	}
	return candidates
}
