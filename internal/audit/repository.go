package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stewardrx/platform/internal/shared/events"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Repository persists and reads the audit chain
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, sequence, event_id, event_type, actor_id, actor_name,
	actor_role, data, occurred_at, prev_hash, hash`

// Append records an event as the next link in the chain. The append is
// serialized with a transaction-level lock on the chain head so two
// concurrent writers cannot both extend the same previous hash.
func (r *Repository) Append(ctx context.Context, event events.Event) (*Entry, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	if event.Data == nil {
		data = []byte("{}")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize appends across connections
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('audit_chain'))`); err != nil {
		return nil, fmt.Errorf("failed to lock audit chain: %w", err)
	}

	var lastSequence int64
	lastHash := genesisHash
	err = tx.QueryRow(ctx, `
		SELECT sequence, hash FROM audit_entries
		ORDER BY sequence DESC LIMIT 1`).Scan(&lastSequence, &lastHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read chain head: %w", err)
	}

	entry := &Entry{
		ID:         types.NewID(),
		Sequence:   lastSequence + 1,
		EventID:    event.ID,
		EventType:  event.Type,
		ActorID:    event.ActorID.String(),
		ActorName:  event.ActorName,
		ActorRole:  event.ActorRole,
		Data:       data,
		OccurredAt: event.Timestamp.UTC(),
		PrevHash:   lastHash,
	}
	if err := entry.Seal(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO audit_entries (%s, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, entryColumns)

	_, err = tx.Exec(ctx, query,
		entry.ID, entry.Sequence, entry.EventID, entry.EventType,
		entry.ActorID, entry.ActorName, entry.ActorRole, entry.Data,
		entry.OccurredAt, entry.PrevHash, entry.Hash, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit audit entry: %w", err)
	}
	return entry, nil
}

// ListFilter narrows audit queries
type ListFilter struct {
	EventType string
	ActorID   string
	Limit     int
	Offset    int
}

// List returns entries in chain order, newest page first by offset
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	conditions := ""
	var args []interface{}
	argNum := 1

	if filter.EventType != "" {
		conditions += fmt.Sprintf(" AND event_type = $%d", argNum)
		args = append(args, filter.EventType)
		argNum++
	}
	if filter.ActorID != "" {
		conditions += fmt.Sprintf(" AND actor_id = $%d", argNum)
		args = append(args, filter.ActorID)
		argNum++
	}

	query := fmt.Sprintf(`
		SELECT %s FROM audit_entries
		WHERE 1=1%s
		ORDER BY sequence DESC
		LIMIT $%d OFFSET $%d`, entryColumns, conditions, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Chain returns the full chain in sequence order for verification
func (r *Repository) Chain(ctx context.Context) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM audit_entries ORDER BY sequence`, entryColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit chain: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(
			&e.ID, &e.Sequence, &e.EventID, &e.EventType, &e.ActorID,
			&e.ActorName, &e.ActorRole, &e.Data, &e.OccurredAt,
			&e.PrevHash, &e.Hash,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
