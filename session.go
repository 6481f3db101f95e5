package auth

import (
	"time"

	"github.com/google/uuid"
)

// SessionObject is the authenticated caller as seen by handlers and views
type SessionObject struct {
	UserID         string     `json:"userId,omitempty"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	IssuedAt       *time.Time `json:"issuedAt,omitempty"`
	ExpirationDate *time.Time `json:"expiresAt,omitempty"`
}

// SessionFromClaims builds a session from validated claims
func SessionFromClaims(claims AuthClaims) *SessionObject {
	if claims == nil {
		return nil
	}

	s := &SessionObject{
		UserID:    claims.UserID(),
		Email:     claims.Email(),
		FirstName: claims.FirstName(),
		LastName:  claims.LastName(),
	}

	if iat := claims.IssuedAt(); !iat.IsZero() {
		s.IssuedAt = &iat
	}

	if exp := claims.Expires(); !exp.IsZero() {
		s.ExpirationDate = &exp
	}

	return s
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

// DisplayName is the name shown on the dashboard
func (s *SessionObject) DisplayName() string {
	switch {
	case s.FirstName != "" && s.LastName != "":
		return s.FirstName + " " + s.LastName
	case s.FirstName != "":
		return s.FirstName
	}
	return s.Email
}

// UserView is the user shape returned by the verify endpoint
func (s *SessionObject) UserView() map[string]string {
	return map[string]string{
		"email":     s.Email,
		"firstName": s.FirstName,
		"lastName":  s.LastName,
	}
}
