// Package docstore is an embedded account store on badger. Accounts are
// JSON documents keyed by id, with a secondary key per email.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	auth "github.com/goliatone/go-auth-dashboard"
)

const (
	accountPrefix = "account/id/"
	emailPrefix   = "account/email/"

	maxConflictRetries = 5
	defaultGCInterval  = 10 * time.Minute
)

// Store implements auth.AccountStore. Email uniqueness relies on badger's
// transaction conflict detection over the email key.
type Store struct {
	db     *badger.DB
	logger auth.Logger
	now    func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ auth.AccountStore = (*Store)(nil)

type Config struct {
	// Dir is the data directory, ignored when InMemory is set
	Dir        string
	InMemory   bool
	GCInterval time.Duration
	Logger     auth.Logger
	Now        func() time.Time
}

type accountDocument struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// Open opens the badger database described by cfg
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, fmt.Errorf("docstore: dir is required")
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	if cfg.Logger != nil {
		opts.Logger = &badgerLogger{logger: cfg.Logger}
	} else {
		opts.Logger = nil
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("docstore: open db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: cfg.Logger,
		now:    cfg.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if s.now == nil {
		s.now = time.Now
	}

	if cfg.InMemory {
		close(s.doneCh)
	} else {
		interval := cfg.GCInterval
		if interval <= 0 {
			interval = defaultGCInterval
		}
		go s.gcLoop(interval)
	}

	return s, nil
}

// Migrate is a no-op, documents carry no schema
func (s *Store) Migrate(context.Context) error {
	return nil
}

func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("docstore: closed")
	}
	return nil
}

func (s *Store) Close() error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, email, passwordHash, firstName, lastName string) (*auth.Account, error) {
	doc := accountDocument{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}

	err = s.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(emailKey(email))
		switch {
		case err == nil:
			return auth.ErrDuplicateEmail
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if err := txn.Set(emailKey(email), []byte(doc.ID)); err != nil {
			return err
		}
		return txn.Set(accountKey(doc.ID), payload)
	})
	if err != nil {
		return nil, err
	}

	return doc.toAccount()
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	var doc accountDocument
	err := s.view(ctx, func(txn *badger.Txn) error {
		id, err := getValue(txn, emailKey(email))
		if err != nil {
			return err
		}
		return getDocument(txn, string(id), &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc.toAccount()
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	var doc accountDocument
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getDocument(txn, id.String(), &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc.toAccount()
}

func (s *Store) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var doc accountDocument
		if err := getDocument(txn, id.String(), &doc); err != nil {
			return err
		}

		at = at.UTC()
		doc.LastLogin = &at

		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode account: %w", err)
		}
		return txn.Set(accountKey(doc.ID), payload)
	})
}

// view runs fn in a read transaction unless ctx is already done
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// update retries fn when a concurrent transaction touched the same keys
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("docstore: giving up after %d conflicts: %w", maxConflictRetries, err)
}

func (s *Store) gcLoop(interval time.Duration) {
	defer close(s.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func getDocument(txn *badger.Txn, id string, doc *accountDocument) error {
	raw, err := getValue(txn, accountKey(id))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return fmt.Errorf("decode account %s: %w", id, err)
	}
	return nil
}

func (d accountDocument) toAccount() (*auth.Account, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse account id: %w", err)
	}
	return &auth.Account{
		ID:           id,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		LastLogin:    d.LastLogin,
	}, nil
}

func accountKey(id string) []byte {
	return []byte(accountPrefix + id)
}

func emailKey(email string) []byte {
	return []byte(emailPrefix + email)
}

type badgerLogger struct {
	logger auth.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
