package services

import (
	"context"
	"errors"
	"testing"

	"spsc-mbanking/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func TestPinVerifySuccessResetsCounter(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// two mismatches, then a match
	for i := 0; i < 2; i++ {
		err := f.pin.Verify(ctx, f.identity, "0000")
		require.ErrorIs(t, err, domain.ErrWrongCredential)
	}
	require.NoError(t, f.pin.Verify(ctx, f.identity, testPin))

	// counter is back to zero: four more mismatches still don't lock
	for i := 0; i < 4; i++ {
		err := f.pin.Verify(ctx, f.identity, "0000")
		require.ErrorIs(t, err, domain.ErrWrongCredential)
	}
	locked, err := f.lockout.IdentityLocked(ctx, f.identity.ID)
	require.NoError(t, err)
	require.False(t, locked)
}

func TestPinVerifyReportsRemainingAttempts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	err := f.pin.Verify(ctx, f.identity, "0000")
	var wrongCred *domain.WrongCredentialError
	require.True(t, errors.As(err, &wrongCred))
	require.Equal(t, "PIN", wrongCred.Gate)
	require.Equal(t, 4, wrongCred.Remaining)
}

func TestPinFifthFailureLocksIdentityAndAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := f.pin.Verify(ctx, f.identity, "0000")
		require.ErrorIs(t, err, domain.ErrWrongCredential)
	}
	err := f.pin.Verify(ctx, f.identity, "0000")
	require.ErrorIs(t, err, domain.ErrAccountLocked)

	locked, err := f.lockout.IdentityLocked(ctx, f.identity.ID)
	require.NoError(t, err)
	require.True(t, locked)

	locked, err = f.lockout.AccountLocked(ctx, testAccount)
	require.NoError(t, err)
	require.True(t, locked)
}

func TestPinLockedIdentityShortCircuits(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.lockout.LockIdentityAndAccount(ctx, f.identity.ID, testAccount, "manual"))

	// even the correct PIN is rejected while locked
	err := f.pin.Verify(ctx, f.identity, testPin)
	require.ErrorIs(t, err, domain.ErrAccountLocked)
}

func TestUnlockRestoresAccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.pin.Verify(ctx, f.identity, "0000")
	}
	err := f.pin.Verify(ctx, f.identity, testPin)
	require.ErrorIs(t, err, domain.ErrAccountLocked)

	require.NoError(t, f.lockout.Unlock(ctx, f.identity.ID, testAccount))

	// counters were reset along with the status flags
	require.NoError(t, f.pin.Verify(ctx, f.identity, testPin))
}
