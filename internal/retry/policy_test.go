package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, ModeFixed, p.Mode)
	assert.Equal(t, 100*time.Millisecond, p.Initial)
	assert.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(ModeLinear, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial, "initial clamped to max")
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, ModeLinear, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	p = NewPolicy("bogus", 0, 0, -1)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	cases := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{"fixed", NewPolicy(ModeFixed, 100*ms, 500*ms, 3), 3, 100 * ms},
		{"linear", NewPolicy(ModeLinear, 100*ms, 250*ms, 5), 2, 200 * ms},
		{"linear capped", NewPolicy(ModeLinear, 100*ms, 250*ms, 5), 3, 250 * ms},
		{"exponential", NewPolicy(ModeExponential, 50*ms, time.Second, 5), 3, 200 * ms},
		{"exponential capped", NewPolicy(ModeExponential, 50*ms, 150*ms, 5), 4, 150 * ms},
		{"zero attempt", DefaultPolicy(), 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.policy.Delay(tc.attempt))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}

func TestDo(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Millisecond, time.Millisecond, 2)
	boom := errors.New("busy")

	calls := 0
	require.NoError(t, p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return boom
		}
		return nil
	}))
	assert.Equal(t, 3, calls)

	calls = 0
	err := p.Do(context.Background(), func() error { calls++; return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := NewPolicy(ModeFixed, time.Hour, time.Hour, 5).Do(ctx, func() error { calls++; return errors.New("busy") })
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
