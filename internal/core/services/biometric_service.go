package services

import (
	"context"
	"fmt"

	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/pkg/metrics"
)

// BiometricService is the step-up gate, invoked only for amounts at or
// above domain.HighValueThreshold. The actual sensor check is delegated to
// an external capability.
type BiometricService struct {
	verifier BiometricVerifier
	lockout  *LockoutService
}

// NewBiometricService creates a new biometric step-up gate
func NewBiometricService(verifier BiometricVerifier, lockout *LockoutService) *BiometricService {
	return &BiometricService{verifier: verifier, lockout: lockout}
}

// StepUp obtains a biometric verdict for a high-value transaction.
// "Unavailable" is a platform condition: no counter, no lock. Any other
// negative verdict counts toward the threshold-5 dual lock of identity and
// source account.
func (s *BiometricService) StepUp(ctx context.Context, identity *models.Identity, sourceAccountNo string, amount int64, reason string) error {
	if locked, err := s.lockout.IdentityLocked(ctx, identity.ID); err != nil {
		return err
	} else if locked {
		return domain.ErrAccountLocked
	}
	if locked, err := s.lockout.AccountLocked(ctx, sourceAccountNo); err != nil {
		return err
	} else if locked {
		return domain.ErrAccountLocked
	}

	result, err := s.verifier.Verify(ctx, reason)
	if err != nil {
		return fmt.Errorf("%w: biometric capability: %v", domain.ErrUpstreamUnavailable, err)
	}
	if result.Success {
		return s.lockout.ResetCounter(ctx, ledger.BioFailuresKey(identity.ID))
	}
	if result.Code == BiometricCodeUnavailable {
		return fmt.Errorf("%w: biometric capability not present", domain.ErrUpstreamUnavailable)
	}

	metrics.GateFailuresTotal.WithLabelValues("biometric").Inc()

	count, err := s.lockout.IncrementCounter(ctx, ledger.BioFailuresKey(identity.ID))
	if err != nil {
		return err
	}
	if count >= domain.MaxGateFailures {
		if err := s.lockout.LockIdentityAndAccount(ctx, identity.ID, sourceAccountNo,
			"too many failed biometric verifications"); err != nil {
			return err
		}
		return domain.ErrAccountLocked
	}

	return &domain.WrongCredentialError{Gate: "BIOMETRIC", Remaining: domain.MaxGateFailures - count}
}
