package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/pkg/mask"
	"spsc-mbanking/internal/pkg/metrics"

	"gorm.io/gorm"
)

const (
	otpLength          = 6
	otpDispatchTimeout = 12 * time.Second

	// TTL per operation kind
	otpTTLDefault = 5 * time.Minute
	otpTTLShort   = 3 * time.Minute
)

// OTPService issues, resends and consumes the one-time codes that confirm
// authorization attempts. Codes are persisted on the attempt record keyed
// by transaction id and dispatched through the external notifier.
type OTPService struct {
	attemptRepo *repositories.AttemptRepository
	notifier    Notifier

	now func() time.Time // test hook
}

// NewOTPService creates a new OTP service
func NewOTPService(attemptRepo *repositories.AttemptRepository, notifier Notifier) *OTPService {
	return &OTPService{
		attemptRepo: attemptRepo,
		notifier:    notifier,
		now:         time.Now,
	}
}

// TTLFor returns the OTP lifetime for an operation kind
func TTLFor(kind domain.OperationKind) time.Duration {
	switch kind {
	case domain.OpMortgageInterestPay, domain.OpBillPay:
		return otpTTLShort
	default:
		return otpTTLDefault
	}
}

// IssueResult is returned by Issue and Resend
type IssueResult struct {
	MaskedDestination string    `json:"masked_destination"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Issue generates a code for a freshly gated attempt, persists the attempt
// with PENDING status and dispatches the code to the destination address.
// If dispatch fails the persisted record is removed again: no PENDING
// attempt may exist without a delivered code.
func (s *OTPService) Issue(ctx context.Context, attempt *models.AuthorizationAttempt, destination string) (*IssueResult, error) {
	code, err := generateSecureOTP(otpLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	expiresAt := s.now().Add(TTLFor(domain.OperationKind(attempt.Kind)))
	attempt.Phase = string(domain.PhaseOtpIssued)
	attempt.OtpCode = code
	attempt.OtpExpiresAt = expiresAt
	attempt.OtpConsumed = false

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		return nil, err
	}

	if err := s.dispatch(ctx, attempt.TxnID, destination, code, expiresAt); err != nil {
		// roll the issuance back rather than leaving an orphaned attempt
		if delErr := s.attemptRepo.Delete(ctx, attempt.TxnID); delErr != nil {
			return nil, fmt.Errorf("otp dispatch failed (%v) and rollback failed: %w", err, delErr)
		}
		return nil, fmt.Errorf("%w: otp dispatch: %v", domain.ErrUpstreamUnavailable, err)
	}

	metrics.OtpIssuedTotal.Inc()
	return &IssueResult{MaskedDestination: mask.Email(destination), ExpiresAt: expiresAt}, nil
}

// Resend re-issues the code for a still-PENDING attempt. Allowed only at or
// past the existing expiry; overwrites code and expiry in place. If the
// redispatch fails the previous code and expiry are restored.
func (s *OTPService) Resend(ctx context.Context, txnID, destination string) (*IssueResult, error) {
	attempt, err := s.getAttempt(ctx, txnID)
	if err != nil {
		return nil, err
	}
	phase := domain.Phase(attempt.Phase)
	if phase == domain.PhaseExpired {
		// abandoned and swept; the code was never consumed
		return nil, domain.ErrOtpExpired
	}
	if phase != domain.PhaseOtpIssued || attempt.OtpConsumed {
		return nil, domain.ErrOtpAlreadyConsumed
	}
	if s.now().Before(attempt.OtpExpiresAt) {
		return nil, domain.ErrOtpNotExpired
	}

	prevCode, prevExpiry := attempt.OtpCode, attempt.OtpExpiresAt

	code, err := generateSecureOTP(otpLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}
	expiresAt := s.now().Add(TTLFor(domain.OperationKind(attempt.Kind)))

	if err := s.attemptRepo.UpdateOtp(ctx, txnID, code, expiresAt); err != nil {
		return nil, err
	}

	if err := s.dispatch(ctx, txnID, destination, code, expiresAt); err != nil {
		// restore the previous code/expiry, never leave a half-updated record
		if restoreErr := s.attemptRepo.UpdateOtp(ctx, txnID, prevCode, prevExpiry); restoreErr != nil {
			return nil, fmt.Errorf("otp redispatch failed (%v) and rollback failed: %w", err, restoreErr)
		}
		return nil, fmt.Errorf("%w: otp dispatch: %v", domain.ErrUpstreamUnavailable, err)
	}

	metrics.OtpIssuedTotal.Inc()
	return &IssueResult{MaskedDestination: mask.Email(destination), ExpiresAt: expiresAt}, nil
}

// Confirm validates a submitted code. On match the attempt's consumed flag
// is flipped exactly once; the first caller to flip it proceeds to
// settlement and every later caller sees ErrOtpAlreadyConsumed.
func (s *OTPService) Confirm(ctx context.Context, txnID, submittedCode string) (*models.AuthorizationAttempt, error) {
	attempt, err := s.getAttempt(ctx, txnID)
	if err != nil {
		return nil, err
	}

	phase := domain.Phase(attempt.Phase)
	switch {
	case phase == domain.PhaseExpired:
		return nil, domain.ErrOtpExpired
	case phase.Terminal() || phase == domain.PhaseConfirmed || attempt.OtpConsumed:
		return nil, domain.ErrOtpAlreadyConsumed
	}

	if s.now().After(attempt.OtpExpiresAt) {
		// mark EXPIRED on first detection
		if err := s.attemptRepo.Resolve(ctx, txnID, domain.PhaseExpired); err != nil {
			return nil, err
		}
		return nil, domain.ErrOtpExpired
	}

	if attempt.OtpCode != submittedCode {
		return nil, domain.ErrWrongOtpCode
	}

	if err := s.attemptRepo.MarkConsumed(ctx, txnID); err != nil {
		return nil, err
	}
	attempt.OtpConsumed = true
	attempt.Phase = string(domain.PhaseConfirmed)
	return attempt, nil
}

func (s *OTPService) getAttempt(ctx context.Context, txnID string) (*models.AuthorizationAttempt, error) {
	attempt, err := s.attemptRepo.GetByTxnID(ctx, txnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return attempt, nil
}

// dispatch sends the code under a hard timeout; a hung gateway must not
// hold the request worker past the deadline.
func (s *OTPService) dispatch(ctx context.Context, txnID, destination, code string, expiresAt time.Time) error {
	sendCtx, cancel := context.WithTimeout(ctx, otpDispatchTimeout)
	defer cancel()

	body := fmt.Sprintf("Your confirmation code for transaction %s is %s. It expires at %s.",
		txnID, code, expiresAt.Format("15:04:05"))
	return s.notifier.Send(sendCtx, destination, "Transaction confirmation code", body)
}

// generateSecureOTP generates a cryptographically secure random numeric code
func generateSecureOTP(length int) (string, error) {
	result := ""
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		result += fmt.Sprintf("%d", n.Int64())
	}
	return result, nil
}
