package domain

import "time"

// Phase represents the state of an authorization attempt. Terminal phases
// are Settled, Failed, Expired and Locked; an attempt never leaves a
// terminal phase and never re-enters a lower one.
type Phase string

const (
	PhasePinOk       Phase = "PIN_OK"
	PhaseBiometricOk Phase = "BIOMETRIC_OK"
	PhaseOtpIssued   Phase = "OTP_ISSUED"
	PhaseConfirmed   Phase = "CONFIRMED"
	PhaseSettled     Phase = "SETTLED"
	PhaseFailed      Phase = "FAILED"
	PhaseExpired     Phase = "EXPIRED"
	PhaseLocked      Phase = "LOCKED"
)

// Terminal reports whether the phase accepts no further transition.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseSettled, PhaseFailed, PhaseExpired, PhaseLocked:
		return true
	}
	return false
}

// OperationKind identifies what a settlement moves money for
type OperationKind string

const (
	OpTransfer            OperationKind = "TRANSFER"
	OpMortgageInterestPay OperationKind = "MORTGAGE_INTEREST_PAY"
	OpSavingWithdraw      OperationKind = "SAVING_WITHDRAW"
	OpBillPay             OperationKind = "BILL_PAY"
)

// Valid reports whether the kind is one the engine settles
func (k OperationKind) Valid() bool {
	switch k {
	case OpTransfer, OpMortgageInterestPay, OpSavingWithdraw, OpBillPay:
		return true
	}
	return false
}

// EntryDirection marks which side of a balance mutation a history row records
type EntryDirection string

const (
	DirectionDebit  EntryDirection = "DEBIT"
	DirectionCredit EntryDirection = "CREDIT"
)

// Account/identity status values stored in ledger cells
const (
	StatusActive = "ACTIVE"
	StatusLocked = "LOCKED"
)

// Failure threshold shared by the PIN and biometric gates. The Nth
// consecutive failure with N < 5 leaves the account ACTIVE; the 5th locks
// both the identity and its settlement account.
const MaxGateFailures = 5

// HighValueThreshold is the amount (minor currency units) at which the
// biometric step-up gate becomes mandatory.
const HighValueThreshold int64 = 10_000_000

// SettlementResult is returned to the caller after a committed settlement.
type SettlementResult struct {
	TransactionID string        `json:"transaction_id"`
	Kind          OperationKind `json:"kind"`
	Amount        int64         `json:"amount"`
	AccountNo     string        `json:"account_no"`
	BalanceAfter  int64         `json:"balance_after"`
	SettledAt     time.Time     `json:"settled_at"`

	// Breakdown fields, populated per operation kind
	PrincipalPortion int64 `json:"principal_portion,omitempty"`
	InterestPortion  int64 `json:"interest_portion,omitempty"`
}
