package patient

// Risk levels derived from lab values. Purely advisory, shown alongside
// the lab summary so clinicians can triage at a glance.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

// RiskLevel scores a patient from their inflammatory and organ-function
// markers. Each abnormal marker adds a point; two or more points is
// high, one is moderate.
func RiskLevel(p *Patient) string {
	points := 0

	// Advanced age
	if p.Age != nil && *p.Age >= 80 {
		points++
	}
	// Leukocytosis or leukopenia
	if p.WBC != nil && (*p.WBC > 12.0 || *p.WBC < 4.0) {
		points++
	}
	// Elevated CRP
	if p.CRP != nil && *p.CRP > 100.0 {
		points++
	}
	// Fever
	if p.BodyTemperature != nil && *p.BodyTemperature >= 38.3 {
		points++
	}
	// Renal impairment
	if p.CockcroftGaultCrCl != nil && *p.CockcroftGaultCrCl < 30.0 {
		points++
	}
	// Thrombocytopenia
	if p.Platelet != nil && *p.Platelet < 100.0 {
		points++
	}

	switch {
	case points >= 2:
		return RiskHigh
	case points == 1:
		return RiskModerate
	default:
		return RiskLow
	}
}
