package services

import (
	"context"
	"errors"
	"testing"

	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func TestBiometricSuccessResetsCounter(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.verifier.result = BiometricResult{Success: false}
	err := f.biometric.StepUp(ctx, f.identity, testAccount, 20_000_000, "test")
	require.ErrorIs(t, err, domain.ErrWrongCredential)

	f.verifier.result = BiometricResult{Success: true}
	require.NoError(t, f.biometric.StepUp(ctx, f.identity, testAccount, 20_000_000, "test"))

	// counter cleared: four fresh failures stay below the lock threshold
	f.verifier.result = BiometricResult{Success: false}
	for i := 0; i < 4; i++ {
		err := f.biometric.StepUp(ctx, f.identity, testAccount, 20_000_000, "test")
		require.ErrorIs(t, err, domain.ErrWrongCredential)
	}
	locked, err := f.lockout.IdentityLocked(ctx, f.identity.ID)
	require.NoError(t, err)
	require.False(t, locked)
}

func TestBiometricUnavailableIsNotAFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.verifier.result = BiometricResult{Success: false, Code: BiometricCodeUnavailable}
	err := f.biometric.StepUp(ctx, f.identity, testAccount, 20_000_000, "test")
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	// no counter movement, no lock - repeat it ten times
	for i := 0; i < 10; i++ {
		err := f.biometric.StepUp(ctx, f.identity, testAccount, 20_000_000, "test")
		require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	}
	locked, err := f.lockout.IdentityLocked(ctx, f.identity.ID)
	require.NoError(t, err)
	require.False(t, locked)
}

func TestBiometricVerifierErrorIsUpstream(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.verifier.err = errors.New("sensor timeout")
	err := f.biometric.StepUp(context.Background(), f.identity, testAccount, 20_000_000, "test")
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestBiometricFifthFailureLocksBoth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.verifier.result = BiometricResult{Success: false, Message: "no match"}
	for i := 0; i < 4; i++ {
		err := f.biometric.StepUp(ctx, f.identity, testAccount, 20_000_000, "test")
		require.ErrorIs(t, err, domain.ErrWrongCredential)
	}
	err := f.biometric.StepUp(ctx, f.identity, testAccount, 20_000_000, "test")
	require.ErrorIs(t, err, domain.ErrAccountLocked)

	locked, err := f.lockout.AccountLocked(ctx, testAccount)
	require.NoError(t, err)
	require.True(t, locked)
}

func TestBiometricLockedAccountShortCircuits(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.cells.Set(ctx, ledger.AccountStatusKey(testAccount), domain.StatusLocked))

	f.verifier.result = BiometricResult{Success: true}
	err := f.biometric.StepUp(ctx, f.identity, testAccount, 20_000_000, "test")
	require.ErrorIs(t, err, domain.ErrAccountLocked)
}
