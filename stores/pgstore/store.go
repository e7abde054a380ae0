// Package pgstore is a Postgres-backed session.Store and user provider.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/session"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const sessionColumns = `id, user_id, token, user_agent, ip_address, created_at, last_activity_at, expires_at`

type Store struct {
	pool *pgxpool.Pool
}

// NewPool opens a pgx pool for dsn.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MinConns = 0
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema. Already being current is not an error.
func Migrate(dsn string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", session.ErrUnavailable, op, err)
}

func scanRecord(row pgx.Row) (*session.Record, error) {
	var rec session.Record
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Token,
		&rec.UserAgent,
		&rec.IPAddress,
		&rec.CreatedAt,
		&rec.LastActivityAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) FindOne(ctx context.Context, q session.Query) (*session.Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE token = $1 AND ($2::text = '' OR user_id = $2::text)
`, q.Token, q.UserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, unavailable("find session", err)
	}
	return rec, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*session.Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, unavailable("find session by id", err)
	}
	return rec, nil
}

func (s *Store) Create(ctx context.Context, rec session.Record) (*session.Record, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO sessions (`+sessionColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`,
		rec.ID,
		rec.UserID,
		rec.Token,
		rec.UserAgent,
		rec.IPAddress,
		rec.CreatedAt.UTC(),
		rec.LastActivityAt.UTC(),
		rec.ExpiresAt.UTC(),
	)
	if err != nil {
		return nil, unavailable("insert session", err)
	}
	return &rec, nil
}

func (s *Store) Update(ctx context.Context, id string, patch session.Patch) (*session.Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `
UPDATE sessions SET
	token = COALESCE($2, token),
	last_activity_at = COALESCE($3, last_activity_at),
	expires_at = COALESCE($4, expires_at)
WHERE id = $1
RETURNING `+sessionColumns+`
`, id, patch.Token, patch.LastActivityAt, patch.ExpiresAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, unavailable("update session", err)
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

func (s *Store) FindAll(ctx context.Context) ([]session.Record, error) {
	return s.list(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY id`)
}

func (s *Store) FindByUser(ctx context.Context, userID string) ([]session.Record, error) {
	return s.list(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]session.Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list sessions", err)
	}
	defer rows.Close()

	out := make([]session.Record, 0, 16)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, unavailable("scan session", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate sessions", err)
	}
	return out, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*storeauth.User, error) {
	return s.user(ctx, `WHERE lower(email) = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*storeauth.User, error) {
	return s.user(ctx, `WHERE id = $1`, id)
}

func (s *Store) user(ctx context.Context, where string, arg string) (*storeauth.User, error) {
	var u storeauth.User
	err := s.pool.QueryRow(ctx, `SELECT id, email, name, role, password_hash FROM users `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storeauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

// PutUser upserts a user keyed by id.
func (s *Store) PutUser(ctx context.Context, u storeauth.User) error {
	if u.ID == "" || u.Email == "" {
		return errors.New("pgstore: user id and email are required")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (id, email, name, role, password_hash)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	email = EXCLUDED.email,
	name = EXCLUDED.name,
	role = EXCLUDED.role,
	password_hash = EXCLUDED.password_hash
`, u.ID, u.Email, u.Name, u.Role, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash of one user.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, hash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storeauth.ErrUserNotFound
	}
	return nil
}

// Ping checks pool connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}
