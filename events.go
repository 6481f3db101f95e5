package auth

import (
	"context"
	"errors"
	"time"
)

// AuthEventType enumerates supported auth event categories.
type AuthEventType string

const (
	AuthEventSignUpSuccess AuthEventType = "auth.signup.success"
	AuthEventSignUpFailure AuthEventType = "auth.signup.failure"
	AuthEventSignInSuccess AuthEventType = "auth.signin.success"
	AuthEventSignInFailure AuthEventType = "auth.signin.failure"
	AuthEventSignOut       AuthEventType = "auth.signout"
)

// AuthEvent captures audit-friendly information about an auth action.
type AuthEvent struct {
	EventType  AuthEventType
	UserID     string
	Email      string
	Reason     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// EventSink consumes auth events for auditing/telemetry purposes.
type EventSink interface {
	Record(ctx context.Context, event AuthEvent) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event AuthEvent) error

// Record implements EventSink.
func (f EventSinkFunc) Record(ctx context.Context, event AuthEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// MultiEventSink fans an event out to every sink. All sinks run,
// errors are joined.
type MultiEventSink []EventSink

func (m MultiEventSink) Record(ctx context.Context, event AuthEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoggingEventSink writes every event to logger
func LoggingEventSink(logger Logger) EventSink {
	logger = normalizeLogger(logger, "events")
	return EventSinkFunc(func(_ context.Context, event AuthEvent) error {
		args := []any{"user_id", event.UserID, "email", event.Email}
		if event.Reason != "" {
			args = append(args, "reason", event.Reason)
		}
		switch event.EventType {
		case AuthEventSignInFailure, AuthEventSignUpFailure:
			logger.Warn(string(event.EventType), args...)
		default:
			logger.Info(string(event.EventType), args...)
		}
		return nil
	})
}

type noopEventSink struct{}

func (noopEventSink) Record(context.Context, AuthEvent) error {
	return nil
}

func normalizeEventSink(s EventSink) EventSink {
	if s == nil {
		return noopEventSink{}
	}
	return s
}
