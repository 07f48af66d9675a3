package emr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Repository handles EMR order persistence
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, patient_id, external_ref, antibiotic, dose, frequency,
	route, status, ordered_by, sent_at, created_at, updated_at`

// Create inserts a draft order
func (r *Repository) Create(ctx context.Context, o *Order) error {
	query := fmt.Sprintf(`
		INSERT INTO emr_orders (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, orderColumns)

	_, err := r.pool.Exec(ctx, query,
		o.ID, o.PatientID, o.ExternalRef, o.Antibiotic, o.Dose, o.Frequency,
		o.Route, o.Status, o.OrderedBy, o.SentAt, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID fetches an order
func (r *Repository) GetByID(ctx context.Context, id types.ID) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM emr_orders WHERE id = $1`, orderColumns)

	var o Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.PatientID, &o.ExternalRef, &o.Antibiotic, &o.Dose,
		&o.Frequency, &o.Route, &o.Status, &o.OrderedBy, &o.SentAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id.String())
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

// List returns orders matching the filter, newest first
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	conditions := ""
	var args []interface{}
	argNum := 1

	if !filter.PatientID.IsZero() {
		conditions += fmt.Sprintf(" AND patient_id = $%d", argNum)
		args = append(args, filter.PatientID)
		argNum++
	}
	if filter.Status != "" {
		conditions += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}

	query := fmt.Sprintf(`
		SELECT %s FROM emr_orders
		WHERE 1=1%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, orderColumns, conditions, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID, &o.PatientID, &o.ExternalRef, &o.Antibiotic, &o.Dose,
			&o.Frequency, &o.Route, &o.Status, &o.OrderedBy, &o.SentAt,
			&o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus moves an order to a new status. The expected current
// status guards against concurrent transitions.
func (r *Repository) UpdateStatus(ctx context.Context, id types.ID, from, to string) (*Order, error) {
	var sentAt *time.Time
	if to == StatusSent {
		now := time.Now().UTC()
		sentAt = &now
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE emr_orders
		SET status = $1, sent_at = COALESCE($2, sent_at), updated_at = NOW()
		WHERE id = $3 AND status = $4`, to, sentAt, id, from)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or not in the expected state
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, apperrors.Conflict(fmt.Sprintf("order is not %s", from))
	}

	return r.GetByID(ctx, id)
}
