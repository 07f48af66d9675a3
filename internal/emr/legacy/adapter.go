// Package legacy imports prescriptions from the hospital information
// system, an aging SQL Server installation that cannot push data. The
// adapter polls its prescription table and hands new rows to a handler.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/rs/zerolog/log"
	"github.com/stewardrx/platform/internal/shared/config"
)

// Prescription is a row imported from the legacy system
type Prescription struct {
	ExternalRef string
	PatientID   string
	Antibiotic  string
	Dose        string
	Frequency   string
	Route       string
	OrderedAt   time.Time
}

// Handler receives each batch of newly seen prescriptions
type Handler func(ctx context.Context, prescriptions []Prescription) error

// Adapter polls the legacy prescription table on an interval
type Adapter struct {
	db       *sql.DB
	table    string
	interval time.Duration
	handler  Handler

	mu       sync.Mutex
	lastSeen time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewAdapter connects to the legacy database
func NewAdapter(cfg config.LegacyEMRConfig, handler Handler) (*Adapter, error) {
	query := url.Values{}
	query.Set("database", cfg.Database)
	if !cfg.Encrypt {
		query.Set("encrypt", "disable")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: query.Encode(),
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy connection: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Adapter{
		db:       db,
		table:    cfg.PrescriptionTable,
		interval: cfg.PollInterval,
		handler:  handler,
		lastSeen: time.Now().UTC().Add(-24 * time.Hour),
	}, nil
}

// Start begins polling. Returns immediately; polling runs in the
// background until Stop is called or ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		log.Info().Str("table", a.table).Dur("interval", a.interval).
			Msg("legacy EMR polling started")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := a.poll(ctx); err != nil {
					log.Warn().Err(err).Msg("legacy EMR poll failed")
				}
			}
		}
	}()
}

// Stop halts polling and closes the connection
func (a *Adapter) Stop() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	a.db.Close()
	log.Info().Msg("legacy EMR polling stopped")
}

// poll fetches prescriptions ordered since the last watermark
func (a *Adapter) poll(ctx context.Context) error {
	a.mu.Lock()
	since := a.lastSeen
	a.mu.Unlock()

	query := fmt.Sprintf(`
		SELECT ExternalRef, PatientID, Antibiotic, Dose, Frequency, Route, OrderedAt
		FROM %s
		WHERE OrderedAt > @since
		ORDER BY OrderedAt`, a.table)

	rows, err := a.db.QueryContext(ctx, query, sql.Named("since", since))
	if err != nil {
		return fmt.Errorf("failed to query legacy prescriptions: %w", err)
	}
	defer rows.Close()

	var batch []Prescription
	watermark := since
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(&p.ExternalRef, &p.PatientID, &p.Antibiotic,
			&p.Dose, &p.Frequency, &p.Route, &p.OrderedAt); err != nil {
			return fmt.Errorf("failed to scan legacy prescription: %w", err)
		}
		batch = append(batch, p)
		if p.OrderedAt.After(watermark) {
			watermark = p.OrderedAt
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("legacy prescription query failed: %w", err)
	}

	if len(batch) == 0 {
		return nil
	}

	if err := a.handler(ctx, batch); err != nil {
		// Watermark stays put so the batch is retried next poll
		return fmt.Errorf("legacy import handler failed: %w", err)
	}

	a.mu.Lock()
	a.lastSeen = watermark
	a.mu.Unlock()

	log.Info().Int("count", len(batch)).Time("watermark", watermark).
		Msg("imported legacy prescriptions")
	return nil
}
