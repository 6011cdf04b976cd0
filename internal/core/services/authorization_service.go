package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/pkg/pincode"

	"gorm.io/gorm"
)

// AuthorizationService sequences the gates for one transaction attempt:
// PIN, then biometric step-up for high-value amounts, then OTP issue,
// then OTP confirm handing over to settlement. A gate is never skipped and
// an attempt never re-enters a lower phase.
type AuthorizationService struct {
	identityRepo *repositories.IdentityRepository
	accountRepo  *repositories.AccountRepository
	sequence     *SequenceService
	pinGate      *PinService
	biometric    *BiometricService
	otp          *OTPService
	settlement   *SettlementService
}

// NewAuthorizationService creates a new authorization orchestrator
func NewAuthorizationService(
	identityRepo *repositories.IdentityRepository,
	accountRepo *repositories.AccountRepository,
	sequence *SequenceService,
	pinGate *PinService,
	biometric *BiometricService,
	otp *OTPService,
	settlement *SettlementService,
) *AuthorizationService {
	return &AuthorizationService{
		identityRepo: identityRepo,
		accountRepo:  accountRepo,
		sequence:     sequence,
		pinGate:      pinGate,
		biometric:    biometric,
		otp:          otp,
		settlement:   settlement,
	}
}

// BeginInput represents begin authorization input
type BeginInput struct {
	Kind   domain.OperationKind `json:"kind"`
	Amount int64                `json:"amount"`
	Pin    string               `json:"pin"`

	// Operation payload
	SourceAccountNo      string `json:"source_account_no,omitempty"`
	DestinationAccountNo string `json:"destination_account_no,omitempty"`
	DestinationBank      string `json:"destination_bank,omitempty"`
	MortgageContractID   *uint  `json:"mortgage_contract_id,omitempty"`
	PeriodKey            string `json:"period_key,omitempty"`
	SavingsAccountID     *uint  `json:"savings_account_id,omitempty"`
	AtMaturity           bool   `json:"at_maturity,omitempty"`
	PayoutAccountNo      string `json:"payout_account_no,omitempty"`
	BillOrderID          *uint  `json:"bill_order_id,omitempty"`
}

// BeginResult represents begin authorization output
type BeginResult struct {
	TransactionID     string    `json:"transaction_id"`
	MaskedDestination string    `json:"masked_destination"`
	ExpiresAt         time.Time `json:"expires_at"`
	StepUpApplied     bool      `json:"step_up_applied"`
}

// Begin runs the PIN gate (and the biometric step-up when the amount
// crosses the high-value threshold), allocates a transaction id and issues
// the OTP. The returned destination is masked.
func (s *AuthorizationService) Begin(ctx context.Context, identityID uint, input *BeginInput) (*BeginResult, error) {
	if err := validateBegin(input); err != nil {
		return nil, err
	}

	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	sourceNo := input.SourceAccountNo
	if sourceNo == "" {
		sourceNo = identity.PrimaryAccountNo
	}

	// the source account must exist and belong to the caller; another
	// identity's account is NotFound, same as an unknown number
	account, err := s.accountRepo.GetByNumber(ctx, sourceNo)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if account.IdentityID != identity.ID {
		return nil, domain.ErrNotFound
	}

	// Gate 1: transaction PIN
	if err := s.pinGate.Verify(ctx, identity, input.Pin); err != nil {
		return nil, err
	}

	// Gate 2: biometric step-up, high-value only
	stepUp := input.Amount >= domain.HighValueThreshold
	if stepUp {
		reason := fmt.Sprintf("Authorize %s of %d", input.Kind, input.Amount)
		if err := s.biometric.StepUp(ctx, identity, sourceNo, input.Amount, reason); err != nil {
			return nil, err
		}
	}

	txnID, err := s.sequence.Next(ctx)
	if err != nil {
		return nil, err
	}

	attempt := &models.AuthorizationAttempt{
		TxnID:                txnID,
		IdentityID:           identity.ID,
		Kind:                 string(input.Kind),
		Amount:               input.Amount,
		SourceAccountNo:      sourceNo,
		DestinationAccountNo: input.DestinationAccountNo,
		DestinationBank:      input.DestinationBank,
		MortgageContractID:   input.MortgageContractID,
		PeriodKey:            input.PeriodKey,
		SavingsAccountID:     input.SavingsAccountID,
		AtMaturity:           input.AtMaturity,
		PayoutAccountNo:      input.PayoutAccountNo,
		BillOrderID:          input.BillOrderID,
	}

	issued, err := s.otp.Issue(ctx, attempt, identity.Email)
	if err != nil {
		return nil, err
	}

	return &BeginResult{
		TransactionID:     txnID,
		MaskedDestination: issued.MaskedDestination,
		ExpiresAt:         issued.ExpiresAt,
		StepUpApplied:     stepUp,
	}, nil
}

// Resend re-issues the OTP for the caller's own attempt, allowed only at or
// past the current expiry.
func (s *AuthorizationService) Resend(ctx context.Context, identityID uint, txnID string) (*IssueResult, error) {
	identity, err := s.ownedBy(ctx, identityID, txnID)
	if err != nil {
		return nil, err
	}
	return s.otp.Resend(ctx, txnID, identity.Email)
}

// Confirm validates the submitted code and, exactly once per attempt,
// hands over to the settlement engine.
func (s *AuthorizationService) Confirm(ctx context.Context, identityID uint, txnID, code string) (*domain.SettlementResult, error) {
	if _, err := s.ownedBy(ctx, identityID, txnID); err != nil {
		return nil, err
	}

	attempt, err := s.otp.Confirm(ctx, txnID, code)
	if err != nil {
		return nil, err
	}
	return s.settlement.Settle(ctx, attempt)
}

// ownedBy loads the caller identity and rejects a txn id belonging to a
// different identity as NotFound (no cross-identity probing).
func (s *AuthorizationService) ownedBy(ctx context.Context, identityID uint, txnID string) (*models.Identity, error) {
	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	attempt, err := s.otp.getAttempt(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if attempt.IdentityID != identity.ID {
		return nil, domain.ErrNotFound
	}
	return identity, nil
}

func validateBegin(input *BeginInput) error {
	if !input.Kind.Valid() {
		return fmt.Errorf("%w: unknown operation kind %q", domain.ErrInvalidInput, input.Kind)
	}
	if input.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	if !pincode.ValidatePin(input.Pin) {
		return fmt.Errorf("%w: pin must be 4-6 digits", domain.ErrInvalidInput)
	}

	switch input.Kind {
	case domain.OpTransfer:
		if input.DestinationAccountNo == "" {
			return fmt.Errorf("%w: destination account is required", domain.ErrInvalidInput)
		}
	case domain.OpMortgageInterestPay:
		if input.MortgageContractID == nil || input.PeriodKey == "" {
			return fmt.Errorf("%w: mortgage contract and period are required", domain.ErrInvalidInput)
		}
	case domain.OpSavingWithdraw:
		if input.SavingsAccountID == nil || input.PayoutAccountNo == "" {
			return fmt.Errorf("%w: savings account and payout account are required", domain.ErrInvalidInput)
		}
	case domain.OpBillPay:
		if input.BillOrderID == nil {
			return fmt.Errorf("%w: bill order is required", domain.ErrInvalidInput)
		}
	}
	return nil
}
