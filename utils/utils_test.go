package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-marketplace/internal/status"
)

func TestExecuteWithBreaker_PassesResult(t *testing.T) {
	cb := NewBreaker("test", time.Minute)

	got, err := ExecuteWithBreaker(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = ExecuteWithBreaker(cb, func() (int, error) { return 0, errors.New("boom") })
	assert.EqualError(t, err, "boom")
}

func TestExecuteWithBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewBreaker("scorer", time.Minute)
	calls := 0

	for i := 0; i < 5; i++ {
		_, _ = ExecuteWithBreaker(cb, func() (bool, error) {
			calls++
			return false, errors.New("failure")
		})
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := ExecuteWithBreaker(cb, func() (bool, error) {
		calls++
		return true, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, calls, "open breaker must not call through")
}

func TestNewBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	rejected := errors.New("rejected")
	cb := NewBreaker("scorer", time.Minute, rejected)

	for i := 0; i < 10; i++ {
		_, err := ExecuteWithBreaker(cb, func() (bool, error) {
			return false, fmt.Errorf("input %d: %w", i, rejected)
		})
		assert.ErrorIs(t, err, rejected)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	got, err := ExecuteWithBreaker(cb, func() (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.True(t, got)
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(4)
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.Regexp(t, "^[0-9A-F]+$", code)
}

// Redis Client Tests

func TestRedisHealthCheck_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")

	err := RedisHealthCheck(context.Background(), db)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()

	expectedError := errors.New("connection failed")
	mock.ExpectPing().SetErr(expectedError)

	err := RedisHealthCheck(context.Background(), db)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis health check failed")
	assert.Contains(t, err.Error(), "connection failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
	}

	assert.NoError(t, ValidateStruct(input{Email: "a@example.com", Password: "long-enough"}))

	err := ValidateStruct(input{Email: "nope", Password: "short"})
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrValidation)
	assert.Equal(t, "email must be a valid email; password must be at least 8", err.Error())
}
