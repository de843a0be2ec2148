package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"authbroker/internal/identity/models"
	"authbroker/pkg/platform/sentinel"
)

// PostgresUserStore persists users in PostgreSQL. This is the recommended
// implementation for deployments where accounts must survive restarts.
type PostgresUserStore struct {
	db    *sql.DB
	clock func() time.Time
}

// Option configures a PostgresUserStore instance.
type Option func(*PostgresUserStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *PostgresUserStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a PostgreSQL-backed user store.
func New(db *sql.DB, opts ...Option) *PostgresUserStore {
	s := &PostgresUserStore{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate creates the users table when it does not exist yet.
func (s *PostgresUserStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL DEFAULT '',
			email         TEXT UNIQUE,
			google_id     TEXT UNIQUE,
			password_hash TEXT,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate users table: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user *models.User) error {
	now := s.clock()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, first_name, last_name, email, google_id, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		nullable(user.Email),
		nullable(user.GoogleID),
		nullablePassword(user.Password),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return translatePQError("create user", err)
	}
	return nil
}

func (s *PostgresUserStore) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = s.clock()

	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, google_id = $5, password_hash = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		nullable(user.Email),
		nullable(user.GoogleID),
		nullablePassword(user.Password),
		user.UpdatedAt,
	)
	if err != nil {
		return translatePQError("update user", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return s.findOne(ctx, `WHERE email = $1`, email)
}

func (s *PostgresUserStore) FindByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	if googleID == "" {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return s.findOne(ctx, `WHERE google_id = $1`, googleID)
}

func (s *PostgresUserStore) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `
		SELECT id, first_name, last_name, email, google_id, password_hash, created_at, updated_at
		FROM users ` + where

	var (
		user         models.User
		email        sql.NullString
		googleID     sql.NullString
		passwordHash sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&email,
		&googleID,
		&passwordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	user.Email = email.String
	user.GoogleID = googleID.String
	if passwordHash.Valid {
		user.Password = &models.PasswordCredential{Hash: passwordHash.String}
	}
	return &user, nil
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullablePassword(p *models.PasswordCredential) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: p.Hash, Valid: true}
}

// translatePQError maps unique violations to the conflict sentinel per the
// store error contract.
func translatePQError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %s: %w", op, pqErr.Constraint, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
