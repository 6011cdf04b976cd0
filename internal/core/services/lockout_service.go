package services

import (
	"context"
	"log"
	"strconv"
	"time"

	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/core/domain"
)

// LockoutService performs the administrative ACTIVE -> LOCKED transition
// and its inverse. The status flags live in ledger cells; the identity and
// account rows only carry lock reason and timestamp metadata.
type LockoutService struct {
	store        ledger.Store
	identityRepo *repositories.IdentityRepository
	accountRepo  *repositories.AccountRepository
}

// NewLockoutService creates a new lockout service
func NewLockoutService(
	store ledger.Store,
	identityRepo *repositories.IdentityRepository,
	accountRepo *repositories.AccountRepository,
) *LockoutService {
	return &LockoutService{
		store:        store,
		identityRepo: identityRepo,
		accountRepo:  accountRepo,
	}
}

// LockIdentityAndAccount locks the identity and its settlement account in
// one administrative action. The identity is locked unconditionally first;
// if the account cannot be located the identity lock still stands and the
// partial condition is flagged as an operational anomaly.
func (s *LockoutService) LockIdentityAndAccount(ctx context.Context, identityID uint, accountNo, reason string) error {
	now := time.Now()

	if err := s.store.Set(ctx, ledger.IdentityStatusKey(identityID), domain.StatusLocked); err != nil {
		return err
	}
	if err := s.identityRepo.SetLock(ctx, identityID, reason, &now); err != nil {
		return err
	}

	if accountNo == "" {
		log.Printf("⚠️ Lockout anomaly: identity %d locked but no settlement account resolved (reason: %s)", identityID, reason)
		return nil
	}
	if _, err := s.accountRepo.GetByNumber(ctx, accountNo); err != nil {
		log.Printf("⚠️ Lockout anomaly: identity %d locked but account %s not found (reason: %s)", identityID, accountNo, reason)
		return nil
	}

	if err := s.store.Set(ctx, ledger.AccountStatusKey(accountNo), domain.StatusLocked); err != nil {
		return err
	}
	return s.accountRepo.SetLock(ctx, accountNo, reason, &now)
}

// Unlock restores an identity and its account to ACTIVE and resets both
// gate failure counters.
func (s *LockoutService) Unlock(ctx context.Context, identityID uint, accountNo string) error {
	if err := s.store.Set(ctx, ledger.IdentityStatusKey(identityID), domain.StatusActive); err != nil {
		return err
	}
	if err := s.identityRepo.SetLock(ctx, identityID, "", nil); err != nil {
		return err
	}
	if err := s.ResetCounter(ctx, ledger.PinFailuresKey(identityID)); err != nil {
		return err
	}
	if err := s.ResetCounter(ctx, ledger.BioFailuresKey(identityID)); err != nil {
		return err
	}

	if accountNo == "" {
		return nil
	}
	if err := s.store.Set(ctx, ledger.AccountStatusKey(accountNo), domain.StatusActive); err != nil {
		return err
	}
	return s.accountRepo.SetLock(ctx, accountNo, "", nil)
}

// IdentityLocked reports whether the identity's status cell says LOCKED
func (s *LockoutService) IdentityLocked(ctx context.Context, identityID uint) (bool, error) {
	status, err := s.store.Get(ctx, ledger.IdentityStatusKey(identityID))
	if err != nil {
		if err == ledger.ErrCellNotFound {
			return false, nil
		}
		return false, err
	}
	return status == domain.StatusLocked, nil
}

// AccountLocked reports whether the account's status cell says LOCKED
func (s *LockoutService) AccountLocked(ctx context.Context, accountNo string) (bool, error) {
	status, err := s.store.Get(ctx, ledger.AccountStatusKey(accountNo))
	if err != nil {
		if err == ledger.ErrCellNotFound {
			return false, nil
		}
		return false, err
	}
	return status == domain.StatusLocked, nil
}

// IncrementCounter bumps a gate failure counter atomically and returns the
// new count.
func (s *LockoutService) IncrementCounter(ctx context.Context, key string) (int, error) {
	value, err := s.store.AtomicUpdate(ctx, key, func(current string, exists bool) (string, error) {
		n := 0
		if exists {
			n, _ = strconv.Atoi(current)
		}
		return strconv.Itoa(n + 1), nil
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// ResetCounter zeroes a gate failure counter
func (s *LockoutService) ResetCounter(ctx context.Context, key string) error {
	_, err := s.store.AtomicUpdate(ctx, key, func(string, bool) (string, error) {
		return "0", nil
	})
	return err
}
