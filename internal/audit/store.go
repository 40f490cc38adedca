package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Store persists an append-only audit trail of redaction calls in
// PostgreSQL. Records carry entity counts and timings only; neither the
// raw nor the redacted content is ever written to the database.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// Record is one audited redaction call.
type Record struct {
	ID         int64          `db:"id" json:"id"`
	RequestID  string         `db:"request_id" json:"request_id"`
	Source     string         `db:"source" json:"source"` // text, value, table, document, batch
	Findings   map[string]int `db:"-" json:"findings"`
	Leaves     int            `db:"leaves" json:"leaves"`
	DurationMS float64        `db:"duration_ms" json:"duration_ms"`
	Outcome    string         `db:"outcome" json:"outcome"` // ok, failed
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS redaction_audit (
	id          BIGSERIAL PRIMARY KEY,
	request_id  TEXT NOT NULL,
	source      TEXT NOT NULL,
	findings    JSONB NOT NULL DEFAULT '{}',
	leaves      INTEGER NOT NULL DEFAULT 0,
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	outcome     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewStore creates an audit store and ensures its schema exists.
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{db: db, logger: logger}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}

	logger.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return store, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure audit schema: %w", err)
	}
	return nil
}

// Insert appends one audit record.
func (s *Store) Insert(ctx context.Context, record *Record) error {
	findings, err := json.Marshal(record.Findings)
	if err != nil {
		return fmt.Errorf("failed to marshal findings: %w", err)
	}

	query := `
		INSERT INTO redaction_audit (request_id, source, findings, leaves, duration_ms, outcome)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = s.db.QueryRowContext(ctx, query,
		record.RequestID,
		record.Source,
		findings,
		record.Leaves,
		record.DurationMS,
		record.Outcome,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to insert audit record",
			zap.Error(err),
			zap.String("request_id", record.RequestID))
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// TotalsSince aggregates finding counts per entity type over the window.
func (s *Store) TotalsSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	query := `
		SELECT kv.key AS entity_type, SUM((kv.value)::bigint) AS total
		FROM redaction_audit, jsonb_each_text(findings) AS kv
		WHERE created_at >= $1
		GROUP BY kv.key`

	rows, err := s.db.QueryxContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var entityType string
		var total int64
		if err := rows.Scan(&entityType, &total); err != nil {
			return nil, fmt.Errorf("failed to scan audit totals: %w", err)
		}
		totals[entityType] = total
	}
	return totals, rows.Err()
}

// Close releases the database pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// maskDatabaseURL hides credentials when the URL is logged.
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "postgres://***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
