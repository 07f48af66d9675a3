package patient

import (
	"testing"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int { return &v }

func TestBMI(t *testing.T) {
	tests := []struct {
		name   string
		weight *float64
		height *float64
		want   *float64
	}{
		{"normal", floatPtr(70), floatPtr(175), floatPtr(22.9)},
		{"missing weight", nil, floatPtr(175), nil},
		{"missing height", floatPtr(70), nil, nil},
		{"zero height", floatPtr(70), floatPtr(0), nil},
		{"heavy", floatPtr(100), floatPtr(160), floatPtr(39.1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Patient{BodyWeight: tt.weight, Height: tt.height}
			got := p.BMI()
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("BMI() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("BMI() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		name    string
		patient Patient
		want    string
	}{
		{
			name:    "no lab values",
			patient: Patient{},
			want:    RiskLow,
		},
		{
			name:    "normal labs",
			patient: Patient{WBC: floatPtr(7.5), CRP: floatPtr(5), BodyTemperature: floatPtr(36.8)},
			want:    RiskLow,
		},
		{
			name:    "isolated leukocytosis",
			patient: Patient{WBC: floatPtr(15.2)},
			want:    RiskModerate,
		},
		{
			name:    "advanced age alone",
			patient: Patient{Age: intPtr(85)},
			want:    RiskModerate,
		},
		{
			name:    "elderly with fever",
			patient: Patient{Age: intPtr(82), BodyTemperature: floatPtr(38.5)},
			want:    RiskHigh,
		},
		{
			name:    "leukopenia",
			patient: Patient{WBC: floatPtr(2.1)},
			want:    RiskModerate,
		},
		{
			name:    "fever plus high crp",
			patient: Patient{BodyTemperature: floatPtr(39.1), CRP: floatPtr(180)},
			want:    RiskHigh,
		},
		{
			name: "septic picture",
			patient: Patient{
				WBC:                floatPtr(18),
				CRP:                floatPtr(250),
				BodyTemperature:    floatPtr(38.9),
				CockcroftGaultCrCl: floatPtr(22),
				Platelet:           floatPtr(45),
			},
			want: RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskLevel(&tt.patient); got != tt.want {
				t.Errorf("RiskLevel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateRequestValidate(t *testing.T) {
	valid := CreateRequest{PatientID: "P-001", Name: "Jane Doe"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing patient_id", CreateRequest{Name: "Jane Doe"}},
		{"missing name", CreateRequest{PatientID: "P-001"}},
		{"blank patient_id", CreateRequest{PatientID: "   ", Name: "Jane Doe"}},
		{"negative age", CreateRequest{PatientID: "P-001", Name: "Jane", Age: intPtr(-1)}},
		{"impossible age", CreateRequest{PatientID: "P-001", Name: "Jane", Age: intPtr(200)}},
		{"zero weight", CreateRequest{PatientID: "P-001", Name: "Jane", BodyWeight: floatPtr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestListFilterNormalize(t *testing.T) {
	tests := []struct {
		name     string
		filter   ListFilter
		wantPage int
		wantSize int
	}{
		{"defaults", ListFilter{}, 1, 12},
		{"negative page", ListFilter{Page: -3, PageSize: 20}, 1, 20},
		{"oversized page", ListFilter{Page: 2, PageSize: 500}, 2, 50},
		{"within bounds", ListFilter{Page: 3, PageSize: 25}, 3, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Normalize()
			if tt.filter.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", tt.filter.Page, tt.wantPage)
			}
			if tt.filter.PageSize != tt.wantSize {
				t.Errorf("PageSize = %d, want %d", tt.filter.PageSize, tt.wantSize)
			}
		})
	}
}
