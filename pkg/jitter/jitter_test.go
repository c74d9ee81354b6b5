package jitter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_StaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := Duration(base, DefaultJitter)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
}

func TestExponentialBackoff_CapsAtMax(t *testing.T) {
	d := ExponentialBackoff(time.Second, 4*time.Second, 10, 0)
	assert.Equal(t, 4*time.Second, d)

	d = ExponentialBackoff(time.Second, time.Minute, 2, 0)
	assert.Equal(t, 4*time.Second, d)
}

func TestRetry(t *testing.T) {
	errTemporary := errors.New("temporary")
	errPermanent := errors.New("permanent")

	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{name: "first attempt succeeds", wantCalls: 1},
		{name: "succeeds after retries", failures: []error{errTemporary, errTemporary}, wantCalls: 3},
		{name: "permanent error stops", failures: []error{errPermanent}, wantCalls: 1, wantErr: errPermanent},
		{name: "attempts exhausted", failures: []error{errTemporary, errTemporary, errTemporary, errTemporary}, wantCalls: 3, wantErr: errTemporary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			policy := Policy{
				Attempts:  3,
				Base:      time.Millisecond,
				Max:       2 * time.Millisecond,
				Retryable: func(err error) bool { return errors.Is(err, errTemporary) },
			}

			err := Retry(context.Background(), policy, func(context.Context) error {
				defer func() { calls++ }()
				if calls < len(tt.failures) {
					return tt.failures[calls]
				}
				return nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{
		Attempts: 5,
		Base:     time.Hour,
		Max:      time.Hour,
		OnRetry:  func(int, time.Duration, error) { cancel() },
	}

	err := Retry(ctx, policy, func(context.Context) error { return errors.New("boom") })
	require.ErrorIs(t, err, context.Canceled)
}
