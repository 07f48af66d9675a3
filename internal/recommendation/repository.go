package recommendation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stewardrx/platform/internal/shared/types"
)

// DosingRule is a row of the antimicrobial dosing reference table
type DosingRule struct {
	ID         types.ID `json:"id"`
	Pathogen   string   `json:"pathogen"`
	Diagnosis  *string  `json:"diagnosis,omitempty"`
	Antibiotic string   `json:"antibiotic"`
	Route      string   `json:"route"`
	Dose       string   `json:"dose"`
	Frequency  string   `json:"frequency"`
	MinCrCl    float64  `json:"min_crcl"`
	MaxCrCl    float64  `json:"max_crcl"`
	Rank       int      `json:"rank"`
	Notes      *string  `json:"notes,omitempty"`
}

// Repository reads the dosing reference table
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const dosingColumns = `id, pathogen, diagnosis, antibiotic, route, dose,
	frequency, min_crcl, max_crcl, rank, notes`

// FindByPathogenAndDiagnosis returns rules matching both pathogen and
// diagnosis, ordered by rank.
func (r *Repository) FindByPathogenAndDiagnosis(ctx context.Context, pathogen, diagnosis string) ([]DosingRule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM antibiotic_dosing
		WHERE pathogen ILIKE $1 AND diagnosis ILIKE $2
		ORDER BY rank, antibiotic`, dosingColumns)

	rows, err := r.pool.Query(ctx, query, "%"+pathogen+"%", "%"+diagnosis+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query dosing rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// FindByPathogen returns rules matching a pathogen regardless of diagnosis
func (r *Repository) FindByPathogen(ctx context.Context, pathogen string) ([]DosingRule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM antibiotic_dosing
		WHERE pathogen ILIKE $1
		ORDER BY rank, antibiotic`, dosingColumns)

	rows, err := r.pool.Query(ctx, query, "%"+pathogen+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query dosing rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// FindEmpiric returns the broad-spectrum rules used when no pathogen is
// identified. These are stored with pathogen = 'empiric'.
func (r *Repository) FindEmpiric(ctx context.Context) ([]DosingRule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM antibiotic_dosing
		WHERE pathogen = 'empiric'
		ORDER BY rank, antibiotic`, dosingColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query empiric rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows pgx.Rows) ([]DosingRule, error) {
	var rules []DosingRule
	for rows.Next() {
		var rule DosingRule
		err := rows.Scan(
			&rule.ID, &rule.Pathogen, &rule.Diagnosis, &rule.Antibiotic,
			&rule.Route, &rule.Dose, &rule.Frequency, &rule.MinCrCl,
			&rule.MaxCrCl, &rule.Rank, &rule.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dosing rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
