package services

import (
	"context"

	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/pkg/metrics"
	"spsc-mbanking/internal/pkg/pincode"
)

// PinService is the first authorization gate: it verifies the transaction
// PIN and tracks consecutive failures per identity.
type PinService struct {
	lockout *LockoutService
}

// NewPinService creates a new PIN gate
func NewPinService(lockout *LockoutService) *PinService {
	return &PinService{lockout: lockout}
}

// Verify checks the submitted PIN against the identity's stored hash.
// A locked identity short-circuits before any comparison so a dead account
// causes no counter churn. On the 5th consecutive mismatch both the
// identity and its primary settlement account are locked.
func (s *PinService) Verify(ctx context.Context, identity *models.Identity, submittedPin string) error {
	locked, err := s.lockout.IdentityLocked(ctx, identity.ID)
	if err != nil {
		return err
	}
	if locked {
		return domain.ErrAccountLocked
	}

	if pincode.Verify(submittedPin, identity.PinHash) {
		return s.lockout.ResetCounter(ctx, ledger.PinFailuresKey(identity.ID))
	}

	metrics.GateFailuresTotal.WithLabelValues("pin").Inc()

	count, err := s.lockout.IncrementCounter(ctx, ledger.PinFailuresKey(identity.ID))
	if err != nil {
		return err
	}
	if count >= domain.MaxGateFailures {
		if err := s.lockout.LockIdentityAndAccount(ctx, identity.ID, identity.PrimaryAccountNo,
			"too many wrong PIN attempts"); err != nil {
			return err
		}
		return domain.ErrAccountLocked
	}

	return &domain.WrongCredentialError{Gate: "PIN", Remaining: domain.MaxGateFailures - count}
}
