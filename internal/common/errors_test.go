package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "contended", err: ErrContended, want: true},
		{name: "wrapped contended", err: fmt.Errorf("lock source 3: %w", ErrContended), want: true},
		{name: "storage failure", err: ErrStorageFailure, want: false},
		{name: "invalid amount", err: ErrInvalidAmount, want: false},
		{name: "not found", err: ErrSourceNotFound, want: false},
		{name: "explicit retryable", err: &RetryableError{Err: errors.New("x"), Retryable: true}, want: true},
		{name: "explicit non-retryable contended", err: &RetryableError{Err: ErrContended, Retryable: false}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestNotFoundErrorsShareRoot(t *testing.T) {
	for _, err := range []error{ErrSourceNotFound, ErrCategoryNotFound, ErrTransactionNotFound, ErrLoanNotFound, ErrPaymentNotFound} {
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.NotErrorIs(t, ErrLoanNotFound, ErrSourceNotFound)
}

func TestUserError(t *testing.T) {
	err := NewUserError("could not post", ErrInvalidAmount)
	assert.Equal(t, "could not post: invalid amount", err.Error())
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.True(t, IsInputError(err))
}

func TestWithRetry(t *testing.T) {
	opts := RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("retries contended then succeeds", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return ErrContended
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry fatal errors", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return ErrStorageFailure
		}, opts)
		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return ErrContended
		}, opts)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, ErrContended)
		assert.Equal(t, 3, calls)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, func() error { return ErrContended }, RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
