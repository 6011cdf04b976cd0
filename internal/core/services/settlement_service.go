package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettlementService applies the monetary effect of a confirmed attempt
// exactly once. The sequence is fixed for every operation kind: recompute
// the amount, claim the domain record with a conditional update (so rival
// attempts against the same record cannot both move money), commit one
// atomic balance mutation, and only then write the auxiliary records
// (history, notification). A claim whose mutation never commits is
// released again.
type SettlementService struct {
	store        ledger.Store
	attemptRepo  *repositories.AttemptRepository
	txRepo       *repositories.TransactionRepository
	notifRepo    *repositories.NotificationRepository
	mortgageRepo *repositories.MortgageRepository
	savingsRepo  *repositories.SavingsRepository
	billRepo     *repositories.BillRepository
	events       EventPublisher
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	store ledger.Store,
	attemptRepo *repositories.AttemptRepository,
	txRepo *repositories.TransactionRepository,
	notifRepo *repositories.NotificationRepository,
	mortgageRepo *repositories.MortgageRepository,
	savingsRepo *repositories.SavingsRepository,
	billRepo *repositories.BillRepository,
	events EventPublisher,
) *SettlementService {
	return &SettlementService{
		store:        store,
		attemptRepo:  attemptRepo,
		txRepo:       txRepo,
		notifRepo:    notifRepo,
		mortgageRepo: mortgageRepo,
		savingsRepo:  savingsRepo,
		billRepo:     billRepo,
		events:       events,
	}
}

// Settle applies a confirmed attempt. Any failure before the balance
// mutation commits marks the attempt FAILED and leaves zero auxiliary
// records behind.
func (s *SettlementService) Settle(ctx context.Context, attempt *models.AuthorizationAttempt) (*domain.SettlementResult, error) {
	kind := domain.OperationKind(attempt.Kind)
	started := time.Now()

	result, err := s.settle(ctx, kind, attempt)
	if err != nil {
		if resolveErr := s.attemptRepo.Resolve(ctx, attempt.TxnID, domain.PhaseFailed); resolveErr != nil {
			log.Printf("❌ Failed to resolve attempt %s after settlement failure: %v", attempt.TxnID, resolveErr)
		}
		metrics.SettlementsTotal.WithLabelValues(string(kind), "failed").Inc()
		return nil, err
	}

	if err := s.attemptRepo.Resolve(ctx, attempt.TxnID, domain.PhaseSettled); err != nil {
		return nil, err
	}
	result.SettledAt = time.Now()

	metrics.SettlementsTotal.WithLabelValues(string(kind), "settled").Inc()
	metrics.SettlementDuration.WithLabelValues(string(kind)).Observe(time.Since(started).Seconds())

	// best-effort fan-out, after commit only
	if s.events != nil {
		if err := s.events.Publish(ctx, "transaction.settled", result); err != nil {
			log.Printf("⚠️ Failed to publish settled event for %s: %v", result.TransactionID, err)
		}
	}
	return result, nil
}

func (s *SettlementService) settle(ctx context.Context, kind domain.OperationKind, attempt *models.AuthorizationAttempt) (*domain.SettlementResult, error) {
	switch kind {
	case domain.OpTransfer:
		return s.settleTransfer(ctx, attempt)
	case domain.OpMortgageInterestPay:
		return s.settleMortgageInterest(ctx, attempt)
	case domain.OpSavingWithdraw:
		return s.settleSavingsWithdraw(ctx, attempt)
	case domain.OpBillPay:
		return s.settleBillPay(ctx, attempt)
	default:
		return nil, fmt.Errorf("%w: unknown operation kind %q", domain.ErrInvalidInput, attempt.Kind)
	}
}

// ------------------------------------------------------------
// Per-operation variants
// ------------------------------------------------------------

func (s *SettlementService) settleTransfer(ctx context.Context, attempt *models.AuthorizationAttempt) (*domain.SettlementResult, error) {
	after, err := s.debit(ctx, attempt.SourceAccountNo, attempt.Amount)
	if err != nil {
		return nil, err
	}

	// the interbank credit leg is outside this ledger; only the debit side
	// is recorded here
	desc := fmt.Sprintf("Transfer to %s", attempt.DestinationAccountNo)
	if attempt.DestinationBank != "" {
		desc = fmt.Sprintf("Transfer to %s (%s)", attempt.DestinationAccountNo, attempt.DestinationBank)
	}
	s.writeAuxiliary(ctx, attempt, attempt.SourceAccountNo, domain.DirectionDebit, attempt.Amount, after, desc)

	return &domain.SettlementResult{
		TransactionID: attempt.TxnID,
		Kind:          domain.OpTransfer,
		Amount:        attempt.Amount,
		AccountNo:     attempt.SourceAccountNo,
		BalanceAfter:  after,
	}, nil
}

func (s *SettlementService) settleMortgageInterest(ctx context.Context, attempt *models.AuthorizationAttempt) (*domain.SettlementResult, error) {
	if attempt.MortgageContractID == nil {
		return nil, fmt.Errorf("%w: missing mortgage contract", domain.ErrInvalidInput)
	}
	contract, err := s.mortgageRepo.GetContract(ctx, *attempt.MortgageContractID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	period, err := s.mortgageRepo.GetPeriod(ctx, contract.ID, attempt.PeriodKey)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if period.Status == models.PeriodStatusPaid {
		return nil, domain.ErrAlreadySettled
	}

	// Recompute from the contract's CURRENT outstanding debt - nothing
	// captured at initiation is trusted, so a rate or debt change between
	// Begin and Confirm cannot produce a stale amount.
	principal, interest := MortgageInstallment(contract.Outstanding, contract.OriginalAmount, contract.AnnualRate, contract.TermMonths)
	amount := principal + interest

	// claim the period before touching money: the conditional DUE -> PAID
	// update admits exactly one attempt, so a rival confirmed attempt for
	// the same period fails here with no balance effect
	if err := s.mortgageRepo.ApplyPayment(ctx, contract.ID, attempt.PeriodKey, attempt.TxnID, principal, interest); err != nil {
		return nil, err
	}

	after, err := s.debit(ctx, contract.PaymentAccountNo, amount)
	if err != nil {
		if revErr := s.mortgageRepo.ReversePayment(ctx, contract.ID, attempt.PeriodKey, attempt.TxnID, principal); revErr != nil {
			log.Printf("❌ Mortgage claim %s not released after failed debit: %v", attempt.TxnID, revErr)
		}
		return nil, err
	}
	desc := fmt.Sprintf("Mortgage %s period %s (principal %d, interest %d)",
		contract.ContractNo, attempt.PeriodKey, principal, interest)
	s.writeAuxiliary(ctx, attempt, contract.PaymentAccountNo, domain.DirectionDebit, amount, after, desc)

	return &domain.SettlementResult{
		TransactionID:    attempt.TxnID,
		Kind:             domain.OpMortgageInterestPay,
		Amount:           amount,
		AccountNo:        contract.PaymentAccountNo,
		BalanceAfter:     after,
		PrincipalPortion: principal,
		InterestPortion:  interest,
	}, nil
}

func (s *SettlementService) settleSavingsWithdraw(ctx context.Context, attempt *models.AuthorizationAttempt) (*domain.SettlementResult, error) {
	if attempt.SavingsAccountID == nil {
		return nil, fmt.Errorf("%w: missing savings account", domain.ErrInvalidInput)
	}
	savings, err := s.savingsRepo.GetByID(ctx, *attempt.SavingsAccountID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if savings.Status != models.SavingsStatusActive {
		return nil, domain.ErrAlreadySettled
	}

	elapsed := monthsBetween(savings.OpenedAt, time.Now())
	matured := elapsed >= savings.TermMonths

	// an at-maturity request against a not-yet-matured account is rejected
	// before any mutation
	if attempt.AtMaturity && !matured {
		return nil, domain.ErrNotMatured
	}

	interest := SavingsInterest(savings.Principal, savings.AnnualRate, savings.EarlyRate, savings.TermMonths, elapsed, attempt.AtMaturity && matured)
	payout := savings.Principal + interest

	// claim the account before touching money: the conditional
	// ACTIVE -> CLOSED update admits exactly one attempt, so a rival
	// confirmed withdrawal cannot produce a second payout
	if err := s.savingsRepo.Close(ctx, savings.ID, attempt.TxnID, savings.Principal, interest); err != nil {
		return nil, err
	}

	after, err := s.credit(ctx, attempt.PayoutAccountNo, payout)
	if err != nil {
		if revErr := s.savingsRepo.Reopen(ctx, savings.ID, attempt.TxnID); revErr != nil {
			log.Printf("❌ Savings claim %s not released after failed credit: %v", attempt.TxnID, revErr)
		}
		return nil, err
	}
	desc := fmt.Sprintf("Savings %s closed (principal %d, interest %d)", savings.AccountNo, savings.Principal, interest)
	s.writeAuxiliary(ctx, attempt, attempt.PayoutAccountNo, domain.DirectionCredit, payout, after, desc)

	return &domain.SettlementResult{
		TransactionID:    attempt.TxnID,
		Kind:             domain.OpSavingWithdraw,
		Amount:           payout,
		AccountNo:        attempt.PayoutAccountNo,
		BalanceAfter:     after,
		PrincipalPortion: savings.Principal,
		InterestPortion:  interest,
	}, nil
}

func (s *SettlementService) settleBillPay(ctx context.Context, attempt *models.AuthorizationAttempt) (*domain.SettlementResult, error) {
	if attempt.BillOrderID == nil {
		return nil, fmt.Errorf("%w: missing bill order", domain.ErrInvalidInput)
	}
	order, err := s.billRepo.GetByID(ctx, *attempt.BillOrderID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if order.Status == models.BillStatusPaid {
		return nil, domain.ErrAlreadySettled
	}

	// charge what the order says now, not what Begin captured
	amount := order.Amount

	// claim the order before touching money: the conditional DUE -> PAID
	// update admits exactly one attempt
	if err := s.billRepo.MarkPaid(ctx, order.ID, attempt.TxnID); err != nil {
		return nil, err
	}

	after, err := s.debit(ctx, attempt.SourceAccountNo, amount)
	if err != nil {
		if revErr := s.billRepo.Reopen(ctx, order.ID, attempt.TxnID); revErr != nil {
			log.Printf("❌ Bill claim %s not released after failed debit: %v", attempt.TxnID, revErr)
		}
		return nil, err
	}
	desc := fmt.Sprintf("Bill %s ref %s", order.BillerCode, order.Reference)
	s.writeAuxiliary(ctx, attempt, attempt.SourceAccountNo, domain.DirectionDebit, amount, after, desc)

	return &domain.SettlementResult{
		TransactionID: attempt.TxnID,
		Kind:          domain.OpBillPay,
		Amount:        amount,
		AccountNo:     attempt.SourceAccountNo,
		BalanceAfter:  after,
	}, nil
}

// ------------------------------------------------------------
// Balance mutation primitives
// ------------------------------------------------------------

// debit performs the single atomic read-modify-write against the source
// balance cell: verify the account is ACTIVE and sufficient, then write
// balance - amount. Insufficiency aborts with no further writes.
func (s *SettlementService) debit(ctx context.Context, accountNo string, amount int64) (int64, error) {
	status, err := s.store.Get(ctx, ledger.AccountStatusKey(accountNo))
	if err != nil && !errors.Is(err, ledger.ErrCellNotFound) {
		return 0, err
	}
	if status == domain.StatusLocked {
		return 0, domain.ErrAccountLocked
	}

	value, err := s.store.AtomicUpdate(ctx, ledger.AccountBalanceKey(accountNo), func(current string, exists bool) (string, error) {
		if !exists {
			return "", fmt.Errorf("%w: account %s has no balance cell", domain.ErrNotFound, accountNo)
		}
		balance, parseErr := strconv.ParseInt(current, 10, 64)
		if parseErr != nil {
			return "", fmt.Errorf("balance cell for %s corrupt: %q", accountNo, current)
		}
		if balance < amount {
			return "", domain.ErrInsufficientFunds
		}
		return strconv.FormatInt(balance-amount, 10), nil
	})
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

// credit adds to a balance cell (savings payout)
func (s *SettlementService) credit(ctx context.Context, accountNo string, amount int64) (int64, error) {
	status, err := s.store.Get(ctx, ledger.AccountStatusKey(accountNo))
	if err != nil && !errors.Is(err, ledger.ErrCellNotFound) {
		return 0, err
	}
	if status == domain.StatusLocked {
		return 0, domain.ErrAccountLocked
	}

	value, err := s.store.AtomicUpdate(ctx, ledger.AccountBalanceKey(accountNo), func(current string, exists bool) (string, error) {
		if !exists {
			return "", fmt.Errorf("%w: account %s has no balance cell", domain.ErrNotFound, accountNo)
		}
		balance, parseErr := strconv.ParseInt(current, 10, 64)
		if parseErr != nil {
			return "", fmt.Errorf("balance cell for %s corrupt: %q", accountNo, current)
		}
		return strconv.FormatInt(balance+amount, 10), nil
	})
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

// writeAuxiliary records history and notification for a committed
// mutation. These writes happen strictly after the balance commit; a
// failure here is logged, not propagated, because the money has moved.
func (s *SettlementService) writeAuxiliary(ctx context.Context, attempt *models.AuthorizationAttempt, accountNo string, direction domain.EntryDirection, amount, balanceAfter int64, description string) {
	record := &models.TransactionRecord{
		TxnID:        attempt.TxnID,
		IdentityID:   attempt.IdentityID,
		Kind:         attempt.Kind,
		AccountNo:    accountNo,
		Direction:    string(direction),
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  description,
	}
	if err := s.txRepo.Create(ctx, record); err != nil {
		log.Printf("❌ History write failed for %s: %v", attempt.TxnID, err)
	}

	verb := "debited"
	if direction == domain.DirectionCredit {
		verb = "credited"
	}
	notification := &models.Notification{
		UUID:       uuid.NewString(),
		IdentityID: attempt.IdentityID,
		Title:      "Balance change",
		Body:       fmt.Sprintf("Account %s %s %d. %s", accountNo, verb, amount, description),
	}
	if err := s.notifRepo.Create(ctx, notification); err != nil {
		log.Printf("❌ Notification write failed for %s: %v", attempt.TxnID, err)
	}
}

// ------------------------------------------------------------
// Amount recomputation
// ------------------------------------------------------------

// MortgageInstallment recomputes the interest-period installment from the
// current outstanding debt D, annual rate R and term T:
// interest = round(D * R/12/100), principal = min(D, round(original/T)).
func MortgageInstallment(outstanding, original int64, annualRate float64, termMonths int) (principal, interest int64) {
	interest = int64(math.Round(float64(outstanding) * annualRate / 12 / 100))
	principal = int64(math.Round(float64(original) / float64(termMonths)))
	if principal > outstanding {
		principal = outstanding
	}
	return principal, interest
}

// SavingsInterest computes the payout interest of a term deposit. Early
// withdrawal earns the policy rate pro-rated by elapsed months; withdrawal
// at/after maturity earns the full contract rate pro-rated by the full
// term.
func SavingsInterest(principal int64, annualRate, earlyRate float64, termMonths, elapsedMonths int, atMaturity bool) int64 {
	if atMaturity {
		return int64(math.Round(float64(principal) * annualRate / 100 * float64(termMonths) / 12))
	}
	if elapsedMonths > termMonths {
		elapsedMonths = termMonths
	}
	return int64(math.Round(float64(principal) * earlyRate / 100 * float64(elapsedMonths) / 12))
}

// monthsBetween counts whole months from a to b
func monthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
