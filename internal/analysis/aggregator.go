package analysis

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/stewardrx/platform/internal/patient"
	"github.com/stewardrx/platform/internal/recommendation"
)

// CaseResult is the analysis outcome for one patient
type CaseResult struct {
	CaseNo             int      `json:"case_no"`
	Diagnosis          string   `json:"diagnosis"`
	Pathogen           string   `json:"pathogen"`
	ActualPrescription string   `json:"actual_prescription"`
	AIRecommendations  []string `json:"ai_recommendations"`
	BestMatch          *string  `json:"best_match"`
	SimilarityScore    int      `json:"similarity_score"`
	MatchStatus        string   `json:"match_status"`
}

// Summary aggregates the per-case outcomes of a run
type Summary struct {
	TotalPatients     int `json:"total_patients"`
	ExactMatches      int `json:"exact_matches"`
	PartialMatches    int `json:"partial_matches"`
	NoMatches         int `json:"no_matches"`
	NoRecommendations int `json:"no_recommendations"`
	MatchRate         int `json:"match_rate"`
}

// Report is the full output of an analysis run
type Report struct {
	Summary  Summary      `json:"summary"`
	Analysis []CaseResult `json:"analysis"`
}

// PatientSource supplies the full patient set in deterministic order
type PatientSource interface {
	All(ctx context.Context) ([]patient.Patient, error)
}

// Aggregator runs prescription-versus-recommendation analysis across
// every patient record.
type Aggregator struct {
	patients   PatientSource
	provider   recommendation.Provider
	classifier *Classifier
	workers    int
}

func NewAggregator(patients PatientSource, provider recommendation.Provider, classifier *Classifier, workers int) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		patients:   patients,
		provider:   provider,
		classifier: classifier,
		workers:    workers,
	}
}

// Run analyzes every patient. Cases run concurrently but the report
// preserves patient order, and one failing case never aborts the run.
func (a *Aggregator) Run(ctx context.Context) (*Report, error) {
	records, err := a.patients.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}

	results := make([]CaseResult, len(records))

	if a.workers == 1 || len(records) < 2 {
		for i := range records {
			results[i] = a.analyzeCase(ctx, i+1, &records[i])
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, a.workers)
		for i := range records {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = a.analyzeCase(ctx, i+1, &records[i])
			}(i)
		}
		wg.Wait()
	}

	report := &Report{Analysis: results}
	report.Summary = summarize(results)
	return report, nil
}

// analyzeCase never fails: provider errors degrade the case to
// no_recommendation so the rest of the run is unaffected.
func (a *Aggregator) analyzeCase(ctx context.Context, caseNo int, p *patient.Patient) CaseResult {
	result := CaseResult{
		CaseNo:            caseNo,
		AIRecommendations: []string{},
	}
	if p.Diagnosis1 != nil {
		result.Diagnosis = *p.Diagnosis1
	}
	if p.Pathogen != nil {
		result.Pathogen = *p.Pathogen
	}
	if p.Antibiotics != nil {
		result.ActualPrescription = *p.Antibiotics
	}

	rec, err := a.provider.Recommend(ctx, p)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", p.PatientID).
			Msg("recommendation failed, case degraded")
		result.BestMatch = nil
		result.SimilarityScore = 0
		result.MatchStatus = StatusNoRecommendation
		return result
	}

	result.AIRecommendations = rec.Texts()

	match := a.classifier.Classify(result.ActualPrescription, result.AIRecommendations)
	result.BestMatch = match.Best
	result.SimilarityScore = match.Score
	result.MatchStatus = match.Status
	return result
}

func summarize(results []CaseResult) Summary {
	s := Summary{TotalPatients: len(results)}
	for _, r := range results {
		switch r.MatchStatus {
		case StatusExactMatch:
			s.ExactMatches++
		case StatusPartialMatch:
			s.PartialMatches++
		case StatusNoMatch:
			s.NoMatches++
		case StatusNoRecommendation:
			s.NoRecommendations++
		}
	}
	if s.TotalPatients > 0 {
		s.MatchRate = int(math.Round(100 * float64(s.ExactMatches) / float64(s.TotalPatients)))
	}
	return s
}
