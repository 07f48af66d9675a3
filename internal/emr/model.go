package emr

import (
	"strings"
	"time"

	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Order statuses. Orders move draft -> sent -> acknowledged, with failed
// as a terminal state reachable from sent.
const (
	StatusDraft        = "draft"
	StatusSent         = "sent"
	StatusAcknowledged = "acknowledged"
	StatusFailed       = "failed"
)

// Order is an antimicrobial order destined for the hospital EMR
type Order struct {
	ID          types.ID   `json:"id"`
	PatientID   types.ID   `json:"patient_id"`
	ExternalRef *string    `json:"external_ref,omitempty"`
	Antibiotic  string     `json:"antibiotic"`
	Dose        string     `json:"dose"`
	Frequency   string     `json:"frequency"`
	Route       string     `json:"route"`
	Status      string     `json:"status"`
	OrderedBy   *types.ID  `json:"ordered_by,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CanTransition reports whether the order may move to the given status
func (o *Order) CanTransition(to string) bool {
	switch o.Status {
	case StatusDraft:
		return to == StatusSent
	case StatusSent:
		return to == StatusAcknowledged || to == StatusFailed
	default:
		return false
	}
}

// CreateRequest is the payload for creating a draft order
type CreateRequest struct {
	PatientID  types.ID `json:"patient_id"`
	Antibiotic string   `json:"antibiotic"`
	Dose       string   `json:"dose"`
	Frequency  string   `json:"frequency"`
	Route      string   `json:"route"`
}

func (r *CreateRequest) Validate() error {
	details := make(map[string]string)
	if r.PatientID.IsZero() {
		details["patient_id"] = "patient_id is required"
	}
	if strings.TrimSpace(r.Antibiotic) == "" {
		details["antibiotic"] = "antibiotic is required"
	}
	if strings.TrimSpace(r.Dose) == "" {
		details["dose"] = "dose is required"
	}
	if strings.TrimSpace(r.Frequency) == "" {
		details["frequency"] = "frequency is required"
	}
	if len(details) > 0 {
		return apperrors.Validation("invalid order", details)
	}
	return nil
}

// ListFilter narrows order queries
type ListFilter struct {
	PatientID types.ID
	Status    string
	Limit     int
	Offset    int
}
