package emr

import (
	"testing"

	"github.com/stewardrx/platform/internal/shared/types"
)

func TestOrderCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusAcknowledged, false},
		{StatusDraft, StatusFailed, false},
		{StatusSent, StatusAcknowledged, true},
		{StatusSent, StatusFailed, true},
		{StatusSent, StatusDraft, false},
		{StatusAcknowledged, StatusSent, false},
		{StatusFailed, StatusSent, false},
	}

	for _, tt := range tests {
		o := &Order{Status: tt.from}
		if got := o.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCreateRequestValidate(t *testing.T) {
	valid := CreateRequest{
		PatientID:  types.NewID(),
		Antibiotic: "ceftriaxone",
		Dose:       "1g",
		Frequency:  "q24h",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing patient", CreateRequest{Antibiotic: "ceftriaxone", Dose: "1g", Frequency: "q24h"}},
		{"missing antibiotic", CreateRequest{PatientID: types.NewID(), Dose: "1g", Frequency: "q24h"}},
		{"missing dose", CreateRequest{PatientID: types.NewID(), Antibiotic: "ceftriaxone", Frequency: "q24h"}},
		{"missing frequency", CreateRequest{PatientID: types.NewID(), Antibiotic: "ceftriaxone", Dose: "1g"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
