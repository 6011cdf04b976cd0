package services

import (
	"context"
	"testing"

	"spsc-mbanking/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func TestBeginValidatesInput(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input BeginInput
	}{
		{"unknown kind", BeginInput{Kind: "CRYPTO_SWAP", Amount: 100, Pin: testPin}},
		{"zero amount", BeginInput{Kind: domain.OpTransfer, Amount: 0, Pin: testPin, DestinationAccountNo: "9990001"}},
		{"negative amount", BeginInput{Kind: domain.OpTransfer, Amount: -5, Pin: testPin, DestinationAccountNo: "9990001"}},
		{"malformed pin", BeginInput{Kind: domain.OpTransfer, Amount: 100, Pin: "12ab", DestinationAccountNo: "9990001"}},
		{"transfer without destination", BeginInput{Kind: domain.OpTransfer, Amount: 100, Pin: testPin}},
		{"mortgage without contract", BeginInput{Kind: domain.OpMortgageInterestPay, Amount: 100, Pin: testPin}},
		{"withdraw without payout", BeginInput{Kind: domain.OpSavingWithdraw, Amount: 100, Pin: testPin}},
		{"bill without order", BeginInput{Kind: domain.OpBillPay, Amount: 100, Pin: testPin}},
	}
	for _, tc := range cases {
		input := tc.input
		_, err := f.authz.Begin(ctx, f.identity.ID, &input)
		require.ErrorIs(t, err, domain.ErrInvalidInput, tc.name)
	}
}

func TestFullAuthorizationFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// 2,000,000 transfer out of a 5,000,000 balance: PIN only, no step-up
	begin := f.begin(t, 2_000_000)
	require.NotEmpty(t, begin.TransactionID)
	require.False(t, begin.StepUpApplied)
	require.NotContains(t, begin.MaskedDestination, "demo@spsc.or.th")
	require.Equal(t, 1, f.notifier.sentCount())

	code := f.issuedCode(t, begin.TransactionID)
	result, err := f.authz.Confirm(ctx, f.identity.ID, begin.TransactionID, code)
	require.NoError(t, err)
	require.Equal(t, int64(2_000_000), result.Amount)
	require.Equal(t, int64(3_000_000), result.BalanceAfter)
	require.Equal(t, int64(3_000_000), f.balance(t, testAccount))
}

func TestBeginWrongPinRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.authz.Begin(ctx, f.identity.ID, &BeginInput{
		Kind:                 domain.OpTransfer,
		Amount:               1_000,
		Pin:                  "9999",
		DestinationAccountNo: "9990001",
	})
	require.ErrorIs(t, err, domain.ErrWrongCredential)
	require.Equal(t, 0, f.notifier.sentCount())
}

func TestBeginHighValueRequiresStepUp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.seedAccount(t, f.identity.ID, "1000009", "SETTLEMENT", 50_000_000)
	input := &BeginInput{
		Kind:                 domain.OpTransfer,
		Amount:               domain.HighValueThreshold,
		Pin:                  testPin,
		SourceAccountNo:      "1000009",
		DestinationAccountNo: "9990001",
	}

	// verdict: no match -> Begin fails at the biometric gate
	f.verifier.result = BiometricResult{Success: false}
	_, err := f.authz.Begin(ctx, f.identity.ID, input)
	require.ErrorIs(t, err, domain.ErrWrongCredential)

	// verdict: pass -> OTP issued with the step-up flag set
	f.verifier.result = BiometricResult{Success: true}
	begin, err := f.authz.Begin(ctx, f.identity.ID, input)
	require.NoError(t, err)
	require.True(t, begin.StepUpApplied)
}

func TestBeginBelowThresholdSkipsBiometric(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// even an unavailable sensor doesn't matter below the threshold
	f.verifier.result = BiometricResult{Success: false, Code: BiometricCodeUnavailable}
	begin := f.begin(t, domain.HighValueThreshold-1)
	require.False(t, begin.StepUpApplied)
}

func TestConfirmCrossIdentityIsNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	begin := f.begin(t, 1_000)
	code := f.issuedCode(t, begin.TransactionID)

	other := f.seedIdentity(t, "other@spsc.or.th", "2000001", 1_000_000)
	_, err := f.authz.Confirm(ctx, other.ID, begin.TransactionID, code)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// the rightful owner can still confirm
	_, err = f.authz.Confirm(ctx, f.identity.ID, begin.TransactionID, code)
	require.NoError(t, err)
}

func TestConfirmTwiceSettlesOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	begin := f.begin(t, 1_000_000)
	code := f.issuedCode(t, begin.TransactionID)

	_, err := f.authz.Confirm(ctx, f.identity.ID, begin.TransactionID, code)
	require.NoError(t, err)
	_, err = f.authz.Confirm(ctx, f.identity.ID, begin.TransactionID, code)
	require.ErrorIs(t, err, domain.ErrOtpAlreadyConsumed)

	// only one debit and one history row
	require.Equal(t, int64(4_000_000), f.balance(t, testAccount))
	count, err := f.txRepo.CountByTxnID(ctx, begin.TransactionID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestResendOwnAttemptOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	begin := f.begin(t, 1_000)
	f.expireOtp(t, begin.TransactionID)

	other := f.seedIdentity(t, "other@spsc.or.th", "2000001", 1_000_000)
	_, err := f.authz.Resend(ctx, other.ID, begin.TransactionID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.authz.Resend(ctx, f.identity.ID, begin.TransactionID)
	require.NoError(t, err)
}

func TestBeginDefaultsToPrimaryAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	begin := f.begin(t, 500) // no SourceAccountNo in input
	code := f.issuedCode(t, begin.TransactionID)

	result, err := f.authz.Confirm(ctx, f.identity.ID, begin.TransactionID, code)
	require.NoError(t, err)
	require.Equal(t, testAccount, result.AccountNo)
}

func TestBeginRejectsForeignSourceAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.seedIdentity(t, "other@spsc.or.th", "2000001", 1_000_000)

	// another identity's account
	_, err := f.authz.Begin(ctx, f.identity.ID, &BeginInput{
		Kind:                 domain.OpTransfer,
		Amount:               1_000,
		Pin:                  testPin,
		SourceAccountNo:      "2000001",
		DestinationAccountNo: "9990001",
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	// an account that does not exist at all
	_, err = f.authz.Begin(ctx, f.identity.ID, &BeginInput{
		Kind:                 domain.OpTransfer,
		Amount:               1_000,
		Pin:                  testPin,
		SourceAccountNo:      "8888888",
		DestinationAccountNo: "9990001",
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
