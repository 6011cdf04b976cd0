package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/core/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTTLPerKind(t *testing.T) {
	t.Parallel()
	require.Equal(t, 5*time.Minute, TTLFor(domain.OpTransfer))
	require.Equal(t, 5*time.Minute, TTLFor(domain.OpSavingWithdraw))
	require.Equal(t, 3*time.Minute, TTLFor(domain.OpMortgageInterestPay))
	require.Equal(t, 3*time.Minute, TTLFor(domain.OpBillPay))
}

func testAttempt(identityID uint, txnID string) *models.AuthorizationAttempt {
	return &models.AuthorizationAttempt{
		TxnID:                txnID,
		IdentityID:           identityID,
		Kind:                 string(domain.OpTransfer),
		Amount:               100_000,
		SourceAccountNo:      testAccount,
		DestinationAccountNo: "9990001",
	}
}

func TestIssuePersistsAndDispatches(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.NoError(t, err)
	require.Equal(t, "s*****i@mail.com", result.MaskedDestination)
	require.Equal(t, 1, f.notifier.sentCount())

	attempt, err := f.attemptRepo.GetByTxnID(ctx, "TXN000001")
	require.NoError(t, err)
	require.Equal(t, string(domain.PhaseOtpIssued), attempt.Phase)
	require.Len(t, attempt.OtpCode, 6)
	require.False(t, attempt.OtpConsumed)

	// the dispatched mail carries the code, never the masked address
	require.Contains(t, f.notifier.sent[0], attempt.OtpCode)
}

func TestIssueDispatchFailureRollsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.notifier.failWith = errors.New("gateway down")
	_, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	// no orphaned PENDING attempt
	_, err = f.attemptRepo.GetByTxnID(ctx, "TXN000001")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestConfirmHappyPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.NoError(t, err)

	code := f.issuedCode(t, "TXN000001")
	attempt, err := f.otp.Confirm(ctx, "TXN000001", code)
	require.NoError(t, err)
	require.True(t, attempt.OtpConsumed)
}

func TestConfirmWrongCodeLeavesAttemptOpen(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.NoError(t, err)

	code := f.issuedCode(t, "TXN000001")
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err = f.otp.Confirm(ctx, "TXN000001", wrong)
	require.ErrorIs(t, err, domain.ErrWrongOtpCode)

	// the right code still works afterwards
	_, err = f.otp.Confirm(ctx, "TXN000001", code)
	require.NoError(t, err)
}

func TestConfirmIsSingleUse(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.NoError(t, err)

	code := f.issuedCode(t, "TXN000001")
	_, err = f.otp.Confirm(ctx, "TXN000001", code)
	require.NoError(t, err)

	_, err = f.otp.Confirm(ctx, "TXN000001", code)
	require.ErrorIs(t, err, domain.ErrOtpAlreadyConsumed)
}

func TestConfirmPastExpiryMarksExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.NoError(t, err)
	code := f.issuedCode(t, "TXN000001")
	f.expireOtp(t, "TXN000001")

	_, err = f.otp.Confirm(ctx, "TXN000001", code)
	require.ErrorIs(t, err, domain.ErrOtpExpired)

	attempt, err := f.attemptRepo.GetByTxnID(ctx, "TXN000001")
	require.NoError(t, err)
	require.Equal(t, string(domain.PhaseExpired), attempt.Phase)

	// repeat confirm keeps reporting expired
	_, err = f.otp.Confirm(ctx, "TXN000001", code)
	require.ErrorIs(t, err, domain.ErrOtpExpired)
}

func TestResendBeforeExpiryRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.NoError(t, err)

	_, err = f.otp.Resend(ctx, "TXN000001", "somchai@mail.com")
	require.ErrorIs(t, err, domain.ErrOtpNotExpired)
}

func TestResendAfterExpiryInvalidatesOldCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.NoError(t, err)
	oldCode := f.issuedCode(t, "TXN000001")
	f.expireOtp(t, "TXN000001")

	result, err := f.otp.Resend(ctx, "TXN000001", "somchai@mail.com")
	require.NoError(t, err)
	require.True(t, result.ExpiresAt.After(time.Now()))
	require.Equal(t, 2, f.notifier.sentCount())

	newCode := f.issuedCode(t, "TXN000001")
	if newCode == oldCode {
		t.Skip("regenerated code collided with the old one (1-in-a-million)")
	}

	_, err = f.otp.Confirm(ctx, "TXN000001", oldCode)
	require.ErrorIs(t, err, domain.ErrWrongOtpCode)
	_, err = f.otp.Confirm(ctx, "TXN000001", newCode)
	require.NoError(t, err)
}

func TestResendDispatchFailureRestoresOldCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.NoError(t, err)
	oldCode := f.issuedCode(t, "TXN000001")
	f.expireOtp(t, "TXN000001")

	f.notifier.failWith = errors.New("gateway down")
	_, err = f.otp.Resend(ctx, "TXN000001", "somchai@mail.com")
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	attempt, err := f.attemptRepo.GetByTxnID(ctx, "TXN000001")
	require.NoError(t, err)
	require.Equal(t, oldCode, attempt.OtpCode)
}

func TestGeneratedCodesAreNumeric(t *testing.T) {
	t.Parallel()
	for i := 0; i < 20; i++ {
		code, err := generateSecureOTP(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.Equal(t, "", strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return -1
			}
			return r
		}, code))
	}
}

func TestResendAfterSweepReportsExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.otp.Issue(ctx, testAttempt(f.identity.ID, "TXN000001"), "somchai@mail.com")
	require.NoError(t, err)

	// the sweeper marked the abandoned attempt EXPIRED; the caller must
	// hear "expired", not "already processed"
	require.NoError(t, f.attemptRepo.Resolve(ctx, "TXN000001", domain.PhaseExpired))

	_, err = f.otp.Resend(ctx, "TXN000001", "somchai@mail.com")
	require.ErrorIs(t, err, domain.ErrOtpExpired)
}
