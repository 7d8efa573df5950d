package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaysClosedOnSuccess(t *testing.T) {
	cb := New(Settings{Name: "test", MaxFailures: 2, Timeout: time.Minute})

	for i := 0; i < 5; i++ {
		require.NoError(t, cb.Execute(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestOpensAfterMaxFailures(t *testing.T) {
	cb := New(Settings{Name: "test", MaxFailures: 2, Timeout: time.Minute})
	boom := errors.New("boom")

	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error {
		t.Fatal("call should not execute while open")
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestHalfOpenProbeClosesOnSuccess(t *testing.T) {
	cb := New(Settings{Name: "test", MaxFailures: 1, Timeout: 10 * time.Millisecond})

	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenProbeReopensOnFailure(t *testing.T) {
	cb := New(Settings{Name: "test", MaxFailures: 3, Timeout: 10 * time.Millisecond})

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	require.Error(t, cb.Execute(func() error { return errors.New("still down") }))
	assert.Equal(t, StateOpen, cb.State())
}

func TestZeroSettingsGetDefaults(t *testing.T) {
	cb := New(Settings{Name: "test"})
	assert.Equal(t, 5, cb.maxFailures)
	assert.Equal(t, 30*time.Second, cb.timeout)
}
