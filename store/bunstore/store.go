// Package bunstore is the SQLite account store built on bun.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-auth-dashboard"
	"github.com/goliatone/go-auth-dashboard/store"
)

// Store implements auth.AccountStore. Email uniqueness is enforced by the
// accounts table constraint.
type Store struct {
	db       *bun.DB
	accounts repository.Repository[*auth.Account]
	logger   auth.Logger
	now      func() time.Time
}

var _ auth.AccountStore = (*Store)(nil)

type Option func(*Store)

func WithLogger(logger auth.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens dsn with the sqlite driver
func Open(dsn string, opts ...Option) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite serializes writers, a single connection also keeps
	// in-memory databases alive and shared
	sqldb.SetMaxOpenConns(1)

	return New(bun.NewDB(sqldb, sqlitedialect.New()), opts...), nil
}

// New wraps an existing bun DB
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		accounts: NewAccountsRepository(db),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewAccountsRepository returns the generic repository for accounts,
// identified by email.
func NewAccountsRepository(db *bun.DB) repository.Repository[*auth.Account] {
	return repository.NewRepository[*auth.Account](db, repository.ModelHandlers[*auth.Account]{
		NewRecord: func() *auth.Account {
			return &auth.Account{}
		},
		GetID: func(record *auth.Account) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *auth.Account, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
}

// Accounts exposes the generic accounts repository
func (s *Store) Accounts() repository.Repository[*auth.Account] {
	return s.accounts
}

// DB exposes the underlying bun DB
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate creates the accounts table
func (s *Store) Migrate(ctx context.Context) error {
	return store.Migrate(ctx, s.db.DB, store.DialectSQLite, s.logger)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
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

	// plain bun insert, isUniqueViolation needs the driver error
	if _, err := s.db.NewInsert().Model(account).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, auth.Derive(auth.ErrDuplicateEmail, err)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return account, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	account, err := s.accounts.GetByIdentifier(ctx, email)
	if err != nil {
		return nil, notFound(err)
	}
	return account, nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	account, err := s.accounts.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFound(err)
	}
	return account, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*auth.Account)(nil)).
		Set("last_login = ?", at.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrAccountNotFound
	}

	return nil
}

func notFound(err error) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return auth.Derive(auth.ErrAccountNotFound, err)
	}
	return fmt.Errorf("select account: %w", err)
}
