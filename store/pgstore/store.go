// Package pgstore is the PostgreSQL account store built on pgx.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	auth "github.com/goliatone/go-auth-dashboard"
	"github.com/goliatone/go-auth-dashboard/store"
)

const uniqueViolation = "23505"

// Store implements auth.AccountStore. Email uniqueness is enforced by the
// uq_accounts_email constraint.
type Store struct {
	pool   *pgxpool.Pool
	dsn    string
	logger auth.Logger
	now    func() time.Time
}

var _ auth.AccountStore = (*Store)(nil)

type Option func(*Store)

func WithLogger(logger auth.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open connects a pool to dsn
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := NewStore(pool, opts...)
	s.dsn = dsn
	return s, nil
}

func NewStore(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate applies the embedded goose migrations
func (s *Store) Migrate(ctx context.Context) error {
	dsn := s.dsn
	if dsn == "" {
		dsn = s.pool.Config().ConnString()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	return store.Migrate(ctx, db, store.DialectPostgres, s.logger)
}

// Pool exposes the underlying pool
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Create(ctx context.Context, email, passwordHash, firstName, lastName string) (*auth.Account, error) {
	account := &auth.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    s.now().UTC(),
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, first_name, last_name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, account.ID.String(), account.FirstName, account.LastName, account.Email, account.PasswordHash, account.CreatedAt)
	if err := row.Scan(&account.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, auth.Derive(auth.ErrDuplicateEmail, err)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return account, nil
}

const selectAccount = `
	SELECT id::text, first_name, last_name, email, password_hash, created_at, last_login
	FROM accounts
`

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return s.scanAccount(s.pool.QueryRow(ctx, selectAccount+` WHERE email = $1`, email))
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	return s.scanAccount(s.pool.QueryRow(ctx, selectAccount+` WHERE id = $1`, id.String()))
}

func (s *Store) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET last_login = $1 WHERE id = $2`, at.UTC(), id.String())
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (s *Store) scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		account auth.Account
		id      string
	)

	err := row.Scan(&id, &account.FirstName, &account.LastName, &account.Email,
		&account.PasswordHash, &account.CreatedAt, &account.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse account id: %w", err)
	}
	account.ID = parsed

	return &account, nil
}
