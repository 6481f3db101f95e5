package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-auth-dashboard"
)

// MockAccountStore implements auth.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) Create(ctx context.Context, email, passwordHash, firstName, lastName string) (*auth.Account, error) {
	args := m.Called(ctx, email, passwordHash, firstName, lastName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountStore) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockConfig implements auth.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string { return m.Called().String(0) }
func (m *MockConfig) GetKeyID() string      { return m.Called().String(0) }
func (m *MockConfig) GetRetiredSecrets() map[string]string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]string)
}
func (m *MockConfig) GetTokenTTL() time.Duration {
	return m.Called().Get(0).(time.Duration)
}
func (m *MockConfig) GetIssuer() string { return m.Called().String(0) }
func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}
func (m *MockConfig) GetCookieName() string { return m.Called().String(0) }
func (m *MockConfig) GetCookieSecure() bool { return m.Called().Bool(0) }
func (m *MockConfig) GetBcryptCost() int    { return m.Called().Int(0) }

func newMockConfig() *MockConfig {
	mockConfig := new(MockConfig)
	mockConfig.On("GetSigningKey").Return(testSigningKey)
	mockConfig.On("GetKeyID").Return("primary")
	mockConfig.On("GetRetiredSecrets").Return(nil)
	mockConfig.On("GetTokenTTL").Return(24 * time.Hour)
	mockConfig.On("GetIssuer").Return("test-issuer")
	mockConfig.On("GetAudience").Return([]string{"test:audience"})
	mockConfig.On("GetCookieName").Return("token")
	mockConfig.On("GetCookieSecure").Return(false)
	mockConfig.On("GetBcryptCost").Return(4)
	return mockConfig
}

const testSigningKey = "test-signing-key-0123456789abcdef"

// recordingSink collects emitted events
type recordingSink struct {
	mu     sync.Mutex
	events []auth.AuthEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []auth.AuthEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.AuthEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) Last() auth.AuthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return auth.AuthEvent{}
	}
	return s.events[len(s.events)-1]
}

// TestIdentity is a simple implementation of Identity interface for testing
type TestIdentity struct {
	id        string
	email     string
	firstName string
	lastName  string
}

func (t TestIdentity) ID() string        { return t.id }
func (t TestIdentity) Email() string     { return t.email }
func (t TestIdentity) FirstName() string { return t.firstName }
func (t TestIdentity) LastName() string  { return t.lastName }

func johnIdentity() TestIdentity {
	return TestIdentity{
		id:        "0d6c7b5e-3f0e-4f64-9a53-6a3f0f5f1c11",
		email:     "john@example.com",
		firstName: "John",
		lastName:  "Doe",
	}
}
