package patient

import (
	"math"
	"strings"
	"time"

	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Patient represents a patient record with demographics, lab values
// and current antimicrobial therapy.
type Patient struct {
	ID        types.ID `json:"id"`
	PatientID string   `json:"patient_id"`
	Name      string   `json:"name"`
	Gender    *string  `json:"gender,omitempty"`
	Age       *int     `json:"age,omitempty"`

	// Anthropometrics
	BodyWeight *float64 `json:"body_weight,omitempty"` // kg
	Height     *float64 `json:"height,omitempty"`      // cm

	// Laboratory values
	WBC                *float64 `json:"wbc,omitempty"`
	Hb                 *float64 `json:"hb,omitempty"`
	Platelet           *float64 `json:"platelet,omitempty"`
	AST                *float64 `json:"ast,omitempty"`
	ALT                *float64 `json:"alt,omitempty"`
	SCr                *float64 `json:"scr,omitempty"`
	CockcroftGaultCrCl *float64 `json:"cockcroft_gault_crcl,omitempty"`
	CRP                *float64 `json:"crp,omitempty"`
	BodyTemperature    *float64 `json:"body_temperature,omitempty"`

	// Clinical context
	Diagnosis1         *string `json:"diagnosis1,omitempty"`
	Diagnosis2         *string `json:"diagnosis2,omitempty"`
	Pathogen           *string `json:"pathogen,omitempty"`
	SampleType         *string `json:"sample_type,omitempty"`
	Antibiotics        *string `json:"antibiotics,omitempty"`
	Allergies          *string `json:"allergies,omitempty"`
	CurrentMedications *string `json:"current_medications,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BMI computes body mass index from weight and height, nil when either
// is missing or height is zero.
func (p *Patient) BMI() *float64 {
	if p.BodyWeight == nil || p.Height == nil || *p.Height == 0 {
		return nil
	}
	heightM := *p.Height / 100
	bmi := math.Round(*p.BodyWeight/(heightM*heightM)*10) / 10
	return &bmi
}

// CreateRequest is the payload for creating a patient record
type CreateRequest struct {
	PatientID          string   `json:"patient_id"`
	Name               string   `json:"name"`
	Gender             *string  `json:"gender,omitempty"`
	Age                *int     `json:"age,omitempty"`
	BodyWeight         *float64 `json:"body_weight,omitempty"`
	Height             *float64 `json:"height,omitempty"`
	WBC                *float64 `json:"wbc,omitempty"`
	Hb                 *float64 `json:"hb,omitempty"`
	Platelet           *float64 `json:"platelet,omitempty"`
	AST                *float64 `json:"ast,omitempty"`
	ALT                *float64 `json:"alt,omitempty"`
	SCr                *float64 `json:"scr,omitempty"`
	CockcroftGaultCrCl *float64 `json:"cockcroft_gault_crcl,omitempty"`
	CRP                *float64 `json:"crp,omitempty"`
	BodyTemperature    *float64 `json:"body_temperature,omitempty"`
	Diagnosis1         *string  `json:"diagnosis1,omitempty"`
	Diagnosis2         *string  `json:"diagnosis2,omitempty"`
	Pathogen           *string  `json:"pathogen,omitempty"`
	SampleType         *string  `json:"sample_type,omitempty"`
	Antibiotics        *string  `json:"antibiotics,omitempty"`
	Allergies          *string  `json:"allergies,omitempty"`
	CurrentMedications *string  `json:"current_medications,omitempty"`
}

// Validate checks the create request fields
func (r *CreateRequest) Validate() error {
	details := make(map[string]string)

	if strings.TrimSpace(r.PatientID) == "" {
		details["patient_id"] = "patient_id is required"
	}
	if strings.TrimSpace(r.Name) == "" {
		details["name"] = "name is required"
	}
	if r.Age != nil && (*r.Age < 0 || *r.Age > 150) {
		details["age"] = "age must be between 0 and 150"
	}
	if r.BodyWeight != nil && *r.BodyWeight <= 0 {
		details["body_weight"] = "body_weight must be positive"
	}
	if r.Height != nil && *r.Height <= 0 {
		details["height"] = "height must be positive"
	}

	if len(details) > 0 {
		return apperrors.Validation("invalid patient record", details)
	}
	return nil
}

// UpdateRequest is the payload for updating a patient record. All fields
// are optional; only provided fields are changed.
type UpdateRequest struct {
	Name               *string  `json:"name,omitempty"`
	Gender             *string  `json:"gender,omitempty"`
	Age                *int     `json:"age,omitempty"`
	BodyWeight         *float64 `json:"body_weight,omitempty"`
	Height             *float64 `json:"height,omitempty"`
	WBC                *float64 `json:"wbc,omitempty"`
	Hb                 *float64 `json:"hb,omitempty"`
	Platelet           *float64 `json:"platelet,omitempty"`
	AST                *float64 `json:"ast,omitempty"`
	ALT                *float64 `json:"alt,omitempty"`
	SCr                *float64 `json:"scr,omitempty"`
	CockcroftGaultCrCl *float64 `json:"cockcroft_gault_crcl,omitempty"`
	CRP                *float64 `json:"crp,omitempty"`
	BodyTemperature    *float64 `json:"body_temperature,omitempty"`
	Diagnosis1         *string  `json:"diagnosis1,omitempty"`
	Diagnosis2         *string  `json:"diagnosis2,omitempty"`
	Pathogen           *string  `json:"pathogen,omitempty"`
	SampleType         *string  `json:"sample_type,omitempty"`
	Antibiotics        *string  `json:"antibiotics,omitempty"`
	Allergies          *string  `json:"allergies,omitempty"`
	CurrentMedications *string  `json:"current_medications,omitempty"`
}

// ListFilter holds search and pagination parameters
type ListFilter struct {
	Search   string // matches patient_id or name
	Pathogen string
	Page     int
	PageSize int
}

// Normalize applies pagination defaults and caps
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 12
	}
	if f.PageSize > 50 {
		f.PageSize = 50
	}
}

// ListResponse is a paginated list of patients
type ListResponse struct {
	Patients []Patient `json:"patients"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// AntibioticUsage aggregates how often an antibiotic appears across records
type AntibioticUsage struct {
	Antibiotic string `json:"antibiotic"`
	Count      int    `json:"count"`
}

// LabSummary is the lab panel view of a patient
type LabSummary struct {
	PatientID          string   `json:"patient_id"`
	Name               string   `json:"name"`
	WBC                *float64 `json:"wbc,omitempty"`
	Hb                 *float64 `json:"hb,omitempty"`
	Platelet           *float64 `json:"platelet,omitempty"`
	AST                *float64 `json:"ast,omitempty"`
	ALT                *float64 `json:"alt,omitempty"`
	SCr                *float64 `json:"scr,omitempty"`
	CockcroftGaultCrCl *float64 `json:"cockcroft_gault_crcl,omitempty"`
	CRP                *float64 `json:"crp,omitempty"`
	BodyTemperature    *float64 `json:"body_temperature,omitempty"`
	BMI                *float64 `json:"bmi,omitempty"`
	RiskLevel          string   `json:"risk_level"`
}
