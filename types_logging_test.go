package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

func argValue(args []any, key string) any {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == key {
			return args[i+1]
		}
	}
	return nil
}

func TestNormalizeLogger(t *testing.T) {
	assert.NotNil(t, normalizeLogger(nil, "test"))

	logger := &captureLogger{}
	assert.Same(t, logger, normalizeLogger(logger, "test"))
}

func TestLoggingEventSinkLevels(t *testing.T) {
	logger := &captureLogger{}
	sink := LoggingEventSink(logger)

	require.NoError(t, sink.Record(context.Background(), AuthEvent{
		EventType: AuthEventSignInSuccess,
		UserID:    "user-1",
		Email:     "john@example.com",
	}))
	require.NoError(t, sink.Record(context.Background(), AuthEvent{
		EventType: AuthEventSignInFailure,
		Email:     "john@example.com",
		Reason:    TextCodeInvalidCredentials,
	}))

	require.Len(t, logger.calls, 2)
	assert.Equal(t, "info", logger.calls[0].level)
	assert.Equal(t, string(AuthEventSignInSuccess), logger.calls[0].message)
	assert.Nil(t, argValue(logger.calls[0].args, "reason"))

	assert.Equal(t, "warn", logger.calls[1].level)
	assert.Equal(t, TextCodeInvalidCredentials, argValue(logger.calls[1].args, "reason"))
}

func TestMultiEventSink(t *testing.T) {
	var got []AuthEventType
	ok := EventSinkFunc(func(_ context.Context, e AuthEvent) error {
		got = append(got, e.EventType)
		return nil
	})
	failing := EventSinkFunc(func(context.Context, AuthEvent) error {
		return errors.New("sink down")
	})

	multi := MultiEventSink{failing, nil, ok}
	err := multi.Record(context.Background(), AuthEvent{EventType: AuthEventSignOut})

	assert.ErrorContains(t, err, "sink down")
	assert.Equal(t, []AuthEventType{AuthEventSignOut}, got, "every sink runs even after a failure")

	var nilFunc EventSinkFunc
	assert.NoError(t, nilFunc.Record(context.Background(), AuthEvent{}))
	assert.NoError(t, normalizeEventSink(nil).Record(context.Background(), AuthEvent{}))
}

func TestWriteErrorLogsInternalCause(t *testing.T) {
	logger := &captureLogger{}

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return WriteError(c, logger, errors.New("connection refused"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	require.Len(t, logger.calls, 1)
	assert.Equal(t, "error", logger.calls[0].level)
	assert.ErrorContains(t, argValue(logger.calls[0].args, "error").(error), "connection refused")
}

func TestWriteErrorDoesNotLogClientErrors(t *testing.T) {
	logger := &captureLogger{}

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return WriteError(c, logger, ErrInvalidCredentials)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, logger.calls)
}
