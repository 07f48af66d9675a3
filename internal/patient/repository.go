package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Repository handles patient persistence
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `id, patient_id, name, gender, age, body_weight, height,
	wbc, hb, platelet, ast, alt, scr, cockcroft_gault_crcl, crp, body_temperature,
	diagnosis1, diagnosis2, pathogen, sample_type, antibiotics, allergies,
	current_medications, created_at, updated_at`

// Create inserts a new patient record
func (r *Repository) Create(ctx context.Context, p *Patient) error {
	query := fmt.Sprintf(`
		INSERT INTO patients (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`, patientColumns)

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.PatientID, p.Name, p.Gender, p.Age, p.BodyWeight, p.Height,
		p.WBC, p.Hb, p.Platelet, p.AST, p.ALT, p.SCr, p.CockcroftGaultCrCl,
		p.CRP, p.BodyTemperature, p.Diagnosis1, p.Diagnosis2, p.Pathogen,
		p.SampleType, p.Antibiotics, p.Allergies, p.CurrentMedications,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return apperrors.Conflict(fmt.Sprintf("patient %s already exists", p.PatientID))
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

// GetByID fetches a patient by internal ID
func (r *Repository) GetByID(ctx context.Context, id types.ID) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id), id.String())
}

// GetByPatientID fetches a patient by external patient identifier
func (r *Repository) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE patient_id = $1`, patientColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, patientID), patientID)
}

func (r *Repository) scanOne(row pgx.Row, id string) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.PatientID, &p.Name, &p.Gender, &p.Age, &p.BodyWeight, &p.Height,
		&p.WBC, &p.Hb, &p.Platelet, &p.AST, &p.ALT, &p.SCr, &p.CockcroftGaultCrCl,
		&p.CRP, &p.BodyTemperature, &p.Diagnosis1, &p.Diagnosis2, &p.Pathogen,
		&p.SampleType, &p.Antibiotics, &p.Allergies, &p.CurrentMedications,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("patient", id)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &p, nil
}

// List returns a filtered, paginated page of patients plus total count
func (r *Repository) List(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	filter.Normalize()

	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Search != "" {
		conditions = append(conditions,
			fmt.Sprintf("(patient_id ILIKE $%d OR name ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}
	if filter.Pathogen != "" {
		conditions = append(conditions, fmt.Sprintf("pathogen ILIKE $%d", argNum))
		args = append(args, "%"+filter.Pathogen+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM patients %s`, whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM patients %s
		ORDER BY patient_id
		LIMIT $%d OFFSET $%d`, patientColumns, whereClause, argNum, argNum+1)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	patients, err := scanPatients(rows)
	if err != nil {
		return nil, err
	}

	return &ListResponse{
		Patients: patients,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// SearchByName returns up to limit patients whose name matches the term
func (r *Repository) SearchByName(ctx context.Context, term string, limit int) ([]Patient, error) {
	if limit <= 0 || limit > 10 {
		limit = 10
	}

	query := fmt.Sprintf(`
		SELECT %s FROM patients
		WHERE name ILIKE $1
		ORDER BY name
		LIMIT $2`, patientColumns)

	rows, err := r.pool.Query(ctx, query, "%"+term+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	defer rows.Close()

	return scanPatients(rows)
}

// All streams every patient ordered by patient identifier. Used by the
// analysis run, which needs a deterministic full scan.
func (r *Repository) All(ctx context.Context) ([]Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients ORDER BY patient_id`, patientColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patients: %w", err)
	}
	defer rows.Close()

	return scanPatients(rows)
}

// Update applies the non-nil fields of req to the patient record
func (r *Repository) Update(ctx context.Context, id types.ID, req *UpdateRequest) (*Patient, error) {
	var sets []string
	var args []interface{}
	argNum := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, value)
		argNum++
	}

	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Gender != nil {
		add("gender", *req.Gender)
	}
	if req.Age != nil {
		add("age", *req.Age)
	}
	if req.BodyWeight != nil {
		add("body_weight", *req.BodyWeight)
	}
	if req.Height != nil {
		add("height", *req.Height)
	}
	if req.WBC != nil {
		add("wbc", *req.WBC)
	}
	if req.Hb != nil {
		add("hb", *req.Hb)
	}
	if req.Platelet != nil {
		add("platelet", *req.Platelet)
	}
	if req.AST != nil {
		add("ast", *req.AST)
	}
	if req.ALT != nil {
		add("alt", *req.ALT)
	}
	if req.SCr != nil {
		add("scr", *req.SCr)
	}
	if req.CockcroftGaultCrCl != nil {
		add("cockcroft_gault_crcl", *req.CockcroftGaultCrCl)
	}
	if req.CRP != nil {
		add("crp", *req.CRP)
	}
	if req.BodyTemperature != nil {
		add("body_temperature", *req.BodyTemperature)
	}
	if req.Diagnosis1 != nil {
		add("diagnosis1", *req.Diagnosis1)
	}
	if req.Diagnosis2 != nil {
		add("diagnosis2", *req.Diagnosis2)
	}
	if req.Pathogen != nil {
		add("pathogen", *req.Pathogen)
	}
	if req.SampleType != nil {
		add("sample_type", *req.SampleType)
	}
	if req.Antibiotics != nil {
		add("antibiotics", *req.Antibiotics)
	}
	if req.Allergies != nil {
		add("allergies", *req.Allergies)
	}
	if req.CurrentMedications != nil {
		add("current_medications", *req.CurrentMedications)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE patients SET %s WHERE id = $%d`,
		strings.Join(sets, ", "), argNum)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("patient", id.String())
	}

	return r.GetByID(ctx, id)
}

// Delete removes a patient record
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("patient", id.String())
	}
	return nil
}

// AntibioticsUsage aggregates antibiotic usage counts across all records,
// optionally narrowed to entries matching the given antibiotic. The
// antibiotics column is free text; entries are split on commas.
func (r *Repository) AntibioticsUsage(ctx context.Context, antibiotic string) ([]AntibioticUsage, error) {
	query := `
		SELECT TRIM(entry) AS antibiotic, COUNT(*) AS count
		FROM patients, UNNEST(STRING_TO_ARRAY(antibiotics, ',')) AS entry
		WHERE antibiotics IS NOT NULL AND antibiotics <> ''`
	var args []interface{}
	if antibiotic != "" {
		query += ` AND TRIM(entry) ILIKE $1`
		args = append(args, "%"+antibiotic+"%")
	}
	query += `
		GROUP BY TRIM(entry)
		HAVING TRIM(entry) <> ''
		ORDER BY count DESC, antibiotic`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate antibiotic usage: %w", err)
	}
	defer rows.Close()

	var usage []AntibioticUsage
	for rows.Next() {
		var u AntibioticUsage
		if err := rows.Scan(&u.Antibiotic, &u.Count); err != nil {
			return nil, fmt.Errorf("failed to scan antibiotic usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

func scanPatients(rows pgx.Rows) ([]Patient, error) {
	var patients []Patient
	for rows.Next() {
		var p Patient
		err := rows.Scan(
			&p.ID, &p.PatientID, &p.Name, &p.Gender, &p.Age, &p.BodyWeight, &p.Height,
			&p.WBC, &p.Hb, &p.Platelet, &p.AST, &p.ALT, &p.SCr, &p.CockcroftGaultCrCl,
			&p.CRP, &p.BodyTemperature, &p.Diagnosis1, &p.Diagnosis2, &p.Pathogen,
			&p.SampleType, &p.Antibiotics, &p.Allergies, &p.CurrentMedications,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}
