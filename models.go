package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	FirstName     string     `bun:"first_name,notnull" json:"firstName"`
	LastName      string     `bun:"last_name,notnull" json:"lastName"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"createdAt"`
	LastLogin     *time.Time `bun:"last_login,nullzero" json:"lastLogin,omitempty"`
}

// AccountSummary is the public view of an account
type AccountSummary struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary returns the public view of the account, never the hash
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:        a.ID.String(),
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
	}
}

// Identity returns the token identity for the account
func (a *Account) Identity() Identity {
	return accountIdentity{account: a}
}

type accountIdentity struct {
	account *Account
}

func (i accountIdentity) ID() string        { return i.account.ID.String() }
func (i accountIdentity) Email() string     { return i.account.Email }
func (i accountIdentity) FirstName() string { return i.account.FirstName }
func (i accountIdentity) LastName() string  { return i.account.LastName }
