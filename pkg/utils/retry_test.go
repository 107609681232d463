package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robalyx/isero/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTemporary = errors.New("temporary error")
	errFatal     = errors.New("fatal error")
)

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		operation     func() (int, error)
		expectedCalls int
		expectedErr   error
	}{
		{
			name: "succeeds first try",
			operation: func() (int, error) {
				return 7, nil
			},
			expectedCalls: 1,
		},
		{
			name: "succeeds after one retry",
			operation: func() func() (int, error) {
				count := 0
				return func() (int, error) {
					count++
					if count < 2 {
						return 0, errTemporary
					}
					return 7, nil
				}
			}(),
			expectedCalls: 2,
		},
		{
			name: "fails all retries",
			operation: func() (int, error) {
				return 0, errTemporary
			},
			expectedCalls: 2,
			expectedErr:   errTemporary,
		},
		{
			name: "permanent error stops immediately",
			operation: func() (int, error) {
				return 0, backoff.Permanent(errFatal)
			},
			expectedCalls: 1,
			expectedErr:   errFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			wrappedOp := func() (int, error) {
				calls++
				return tt.operation()
			}

			opts := utils.RetryOptions{
				MaxElapsedTime:  100 * time.Millisecond,
				InitialInterval: 5 * time.Millisecond,
				MaxInterval:     10 * time.Millisecond,
				MaxRetries:      1,
			}

			result, err := utils.WithRetry(t.Context(), wrappedOp, opts)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 7, result)
			}

			assert.Equal(t, tt.expectedCalls, calls)
		})
	}
}

func TestWithRetryContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := utils.WithRetry(ctx, func() (int, error) {
		return 0, errTemporary
	}, utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
		MaxRetries:      5,
	})

	require.Error(t, err)
}
