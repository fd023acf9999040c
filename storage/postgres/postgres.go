// Package postgres provides a PostgreSQL implementation of the
// genroute.Storage interface. The credit debit is a single conditional
// UPDATE so the affordability check and the decrement commit atomically.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinexa/genroute/pkg/genroute"
)

// Storage implements genroute.Storage using PostgreSQL.
type Storage struct {
	pool   *pgxpool.Pool
	config Config
}

// Config holds PostgreSQL storage configuration.
type Config struct {
	// ConnectionString is the PostgreSQL connection string.
	ConnectionString string

	// Pool configuration.
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// MaxRecords caps the generations table before CreateRecord returns
	// ErrStorageCapacity. 0 means unbounded.
	MaxRecords int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL storage adapter.
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Storage{pool: pool, config: config}, nil
}

// Close closes the PostgreSQL connection pool.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables this adapter needs if they are missing.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS genroute_users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL,
			name       TEXT NOT NULL,
			plan       TEXT NOT NULL,
			credits    INTEGER NOT NULL CHECK (credits >= 0),
			is_admin   BOOLEAN NOT NULL DEFAULT FALSE,
			is_active  BOOLEAN NOT NULL DEFAULT TRUE,
			avatar_url TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS genroute_usage_logs (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			provider     TEXT NOT NULL,
			mode         TEXT NOT NULL,
			cost         INTEGER NOT NULL,
			credits_left INTEGER NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS genroute_usage_logs_created_idx
			ON genroute_usage_logs (created_at DESC);
		CREATE TABLE IF NOT EXISTS genroute_generations (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			type          TEXT NOT NULL,
			prompt        TEXT NOT NULL,
			status        TEXT NOT NULL,
			url           TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL,
			settings      JSONB NOT NULL DEFAULT '{}'::jsonb,
			seo           JSONB
		);
		CREATE INDEX IF NOT EXISTS genroute_generations_user_idx
			ON genroute_generations (user_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// GetUser implements genroute.Storage.
func (s *Storage) GetUser(ctx context.Context, id string) (*genroute.User, error) {
	var u genroute.User
	var plan string
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, plan, credits, is_admin, is_active, avatar_url
			FROM genroute_users WHERE id = $1`,
		id).Scan(&u.ID, &u.Email, &u.Name, &plan, &u.Credits, &u.IsAdmin, &u.IsActive, &u.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, genroute.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Plan = genroute.PlanType(plan)
	return &u, nil
}

// PutUser implements genroute.Storage.
func (s *Storage) PutUser(ctx context.Context, u *genroute.User) error {
	if u == nil || u.ID == "" {
		return fmt.Errorf("invalid user")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO genroute_users (id, email, name, plan, credits, is_admin, is_active, avatar_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email, name = EXCLUDED.name, plan = EXCLUDED.plan,
				credits = EXCLUDED.credits, is_admin = EXCLUDED.is_admin,
				is_active = EXCLUDED.is_active, avatar_url = EXCLUDED.avatar_url`,
		u.ID, u.Email, u.Name, string(u.Plan), u.Credits, u.IsAdmin, u.IsActive, u.AvatarURL)
	if err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}
	return nil
}

// ListUsers implements genroute.Storage.
func (s *Storage) ListUsers(ctx context.Context) ([]*genroute.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, name, plan, credits, is_admin, is_active, avatar_url
			FROM genroute_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []*genroute.User
	for rows.Next() {
		var u genroute.User
		var plan string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &plan, &u.Credits, &u.IsAdmin, &u.IsActive, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Plan = genroute.PlanType(plan)
		out = append(out, &u)
	}
	return out, rows.Err()
}

// SetCredits implements genroute.Storage.
func (s *Storage) SetCredits(ctx context.Context, id string, credits int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE genroute_users SET credits = $2 WHERE id = $1`, id, credits)
	if err != nil {
		return fmt.Errorf("failed to set credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return genroute.ErrUserNotFound
	}
	return nil
}

// DebitCredits implements genroute.Storage. The conditional UPDATE is the
// serialization point: a concurrent debit that would overdraw simply
// matches no row.
func (s *Storage) DebitCredits(ctx context.Context, id string, cost int) (int, error) {
	if cost < 0 {
		return 0, fmt.Errorf("negative cost")
	}

	var remaining int
	err := s.pool.QueryRow(ctx,
		`UPDATE genroute_users SET credits = credits - $2
			WHERE id = $1 AND credits >= $2
			RETURNING credits`,
		id, cost).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to debit credits: %w", err)
	}

	// No row matched: either the user is unknown or the balance is short.
	var balance int
	err = s.pool.QueryRow(ctx,
		`SELECT credits FROM genroute_users WHERE id = $1`, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, genroute.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, genroute.ErrInsufficientCredits
}

// AppendLog implements genroute.Storage.
func (s *Storage) AppendLog(ctx context.Context, entry *genroute.LogEntry) error {
	if entry == nil {
		return fmt.Errorf("nil log entry")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO genroute_usage_logs (id, user_id, provider, mode, cost, credits_left, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.Provider, string(entry.Mode), entry.Cost, entry.CreditsLeft, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

// ListLogs implements genroute.Storage.
func (s *Storage) ListLogs(ctx context.Context, limit int) ([]*genroute.LogEntry, error) {
	query := `SELECT id, user_id, provider, mode, cost, credits_left, created_at
		FROM genroute_usage_logs ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	var out []*genroute.LogEntry
	for rows.Next() {
		var e genroute.LogEntry
		var mode string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Provider, &mode, &e.Cost, &e.CreditsLeft, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		e.Mode = genroute.Mode(mode)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ProviderUsage implements genroute.Storage.
func (s *Storage) ProviderUsage(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT provider, COUNT(*) FROM genroute_usage_logs GROUP BY provider`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var provider string
		var count int
		if err := rows.Scan(&provider, &count); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		usage[provider] = count
	}
	return usage, rows.Err()
}

// CreateRecord implements genroute.Storage.
func (s *Storage) CreateRecord(ctx context.Context, rec *genroute.GenerationRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("invalid record")
	}

	if s.config.MaxRecords > 0 {
		var count int
		if err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM genroute_generations`).Scan(&count); err != nil {
			return fmt.Errorf("failed to count records: %w", err)
		}
		if count >= s.config.MaxRecords {
			return genroute.ErrStorageCapacity
		}
	}

	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	var seo []byte
	if rec.SEO != nil {
		if seo, err = json.Marshal(rec.SEO); err != nil {
			return fmt.Errorf("failed to marshal seo: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO genroute_generations
			(id, user_id, type, prompt, status, url, thumbnail_url, created_at, settings, seo)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.UserID, string(rec.Type), rec.Prompt, string(rec.Status),
		rec.URL, rec.ThumbnailURL, rec.CreatedAt, settings, seo)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

// ListRecordsByUser implements genroute.Storage.
func (s *Storage) ListRecordsByUser(ctx context.Context, userID string, since time.Time) ([]*genroute.GenerationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, type, prompt, status, url, thumbnail_url, created_at, settings, seo
			FROM genroute_generations
			WHERE user_id = $1 AND created_at >= $2
			ORDER BY created_at DESC`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list user records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListAllRecords implements genroute.Storage.
func (s *Storage) ListAllRecords(ctx context.Context) ([]*genroute.GenerationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, type, prompt, status, url, thumbnail_url, created_at, settings, seo
			FROM genroute_generations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// EvictOldestRecords implements genroute.Storage.
func (s *Storage) EvictOldestRecords(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM genroute_generations WHERE id IN (
			SELECT id FROM genroute_generations ORDER BY created_at ASC LIMIT $1
		)`, n)
	if err != nil {
		return 0, fmt.Errorf("failed to evict records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanRecords(rows pgx.Rows) ([]*genroute.GenerationRecord, error) {
	var out []*genroute.GenerationRecord
	for rows.Next() {
		var rec genroute.GenerationRecord
		var recType, status string
		var settings []byte
		var seo []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &recType, &rec.Prompt, &status,
			&rec.URL, &rec.ThumbnailURL, &rec.CreatedAt, &settings, &seo); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Type = genroute.RecordType(recType)
		rec.Status = genroute.RecordStatus(status)
		if len(settings) > 0 {
			if err := json.Unmarshal(settings, &rec.Settings); err != nil {
				return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
			}
		}
		if len(seo) > 0 {
			rec.SEO = &genroute.SEOData{}
			if err := json.Unmarshal(seo, rec.SEO); err != nil {
				return nil, fmt.Errorf("failed to unmarshal seo: %w", err)
			}
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
