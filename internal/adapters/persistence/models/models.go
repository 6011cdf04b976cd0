package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Identity & Account
// ============================================================

// Identity represents identities table. Balances, statuses and failure
// counters are NOT columns here - they live in ledger_cells and are only
// touched through the ledger store's atomic update primitive.
type Identity struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	FullName         string         `gorm:"size:100;not null" json:"full_name"`
	Email            string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password         string         `gorm:"size:255;not null" json:"-"`
	PinHash          string         `gorm:"size:255;not null" json:"-"`
	PrimaryAccountNo string         `gorm:"size:20;not null" json:"primary_account_no"`
	LockReason       string         `gorm:"size:255" json:"lock_reason,omitempty"`
	LockedAt         *time.Time     `json:"locked_at,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Identity) TableName() string {
	return "identities"
}

// IdentityResponse DTO
type IdentityResponse struct {
	ID               uint   `json:"id"`
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	PrimaryAccountNo string `json:"primary_account_no"`
}

func (i *Identity) ToResponse() *IdentityResponse {
	return &IdentityResponse{
		ID:               i.ID,
		FullName:         i.FullName,
		Email:            i.Email,
		PrimaryAccountNo: i.PrimaryAccountNo,
	}
}

// Account represents accounts table (metadata only; balance and status are
// ledger cells keyed by account number)
type Account struct {
	Number     string         `gorm:"primaryKey;size:20" json:"number"`
	IdentityID uint           `gorm:"index;not null" json:"identity_id"`
	Kind       string         `gorm:"size:20;default:'SETTLEMENT'" json:"kind"`
	LockReason string         `gorm:"size:255" json:"lock_reason,omitempty"`
	LockedAt   *time.Time     `json:"locked_at,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// ============================================================
// Ledger cells (shared balance / counter / status store)
// ============================================================

// LedgerCell represents ledger_cells table. Keys are path-like
// ("accounts/1000001/balance"); Version backs the compare-and-retry
// primitive.
type LedgerCell struct {
	Key     string `gorm:"column:cell_key;primaryKey;size:120" json:"key"`
	Value   string `gorm:"size:255;not null" json:"value"`
	Version uint64 `gorm:"not null;default:1" json:"version"`
}

func (LedgerCell) TableName() string {
	return "ledger_cells"
}

// ============================================================
// Authorization attempts
// ============================================================

// AuthorizationAttempt represents authorization_attempts table - one
// in-flight request to move money, keyed by the generated transaction id.
type AuthorizationAttempt struct {
	TxnID      string     `gorm:"primaryKey;size:20" json:"txn_id"`
	IdentityID uint       `gorm:"index;not null" json:"identity_id"`
	Kind       string     `gorm:"size:30;not null" json:"kind"`
	Amount     int64      `gorm:"not null" json:"amount"`
	Phase      string     `gorm:"size:20;not null;index" json:"phase"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// OTP fields, owned by the OTP manager
	OtpCode      string    `gorm:"size:10" json:"-"`
	OtpExpiresAt time.Time `json:"otp_expires_at"`
	OtpConsumed  bool      `gorm:"default:false" json:"-"`

	// Operation payload (nullable columns per kind)
	SourceAccountNo      string `gorm:"size:20" json:"source_account_no,omitempty"`
	DestinationAccountNo string `gorm:"size:34" json:"destination_account_no,omitempty"`
	DestinationBank      string `gorm:"size:50" json:"destination_bank,omitempty"`
	MortgageContractID   *uint  `json:"mortgage_contract_id,omitempty"`
	PeriodKey            string `gorm:"size:10" json:"period_key,omitempty"`
	SavingsAccountID     *uint  `json:"savings_account_id,omitempty"`
	AtMaturity           bool   `gorm:"default:false" json:"at_maturity,omitempty"`
	PayoutAccountNo      string `gorm:"size:20" json:"payout_account_no,omitempty"`
	BillOrderID          *uint  `json:"bill_order_id,omitempty"`
}

func (AuthorizationAttempt) TableName() string {
	return "authorization_attempts"
}

// ============================================================
// Settlement side records
// ============================================================

// TransactionRecord represents transaction_records table (history). Written
// only after the balance mutation for the same txn id has committed.
type TransactionRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TxnID        string    `gorm:"uniqueIndex;size:20;not null" json:"txn_id"`
	IdentityID   uint      `gorm:"index;not null" json:"identity_id"`
	Kind         string    `gorm:"size:30;not null" json:"kind"`
	AccountNo    string    `gorm:"index;size:20;not null" json:"account_no"`
	Direction    string    `gorm:"size:6;not null" json:"direction"`
	Amount       int64     `gorm:"not null" json:"amount"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	Description  string    `gorm:"size:255" json:"description"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TransactionRecord) TableName() string {
	return "transaction_records"
}

// Notification represents notifications table (balance-change inbox)
type Notification struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UUID       string     `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	IdentityID uint       `gorm:"index;not null" json:"identity_id"`
	Title      string     `gorm:"size:100;not null" json:"title"`
	Body       string     `gorm:"size:500" json:"body"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// ============================================================
// Domain settlement records
// ============================================================

// MortgageContract represents mortgage_contracts table
type MortgageContract struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	IdentityID       uint      `gorm:"index;not null" json:"identity_id"`
	ContractNo       string    `gorm:"uniqueIndex;size:20;not null" json:"contract_no"`
	OriginalAmount   int64     `gorm:"not null" json:"original_amount"`
	Outstanding      int64     `gorm:"not null" json:"outstanding"`
	AnnualRate       float64   `gorm:"type:decimal(5,2);not null" json:"annual_rate"`
	TermMonths       int       `gorm:"not null" json:"term_months"`
	PaymentAccountNo string    `gorm:"size:20;not null" json:"payment_account_no"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MortgageContract) TableName() string {
	return "mortgage_contracts"
}

// Mortgage schedule period status
const (
	PeriodStatusDue  = "DUE"
	PeriodStatusPaid = "PAID"
)

// MortgageSchedulePeriod represents mortgage_schedule_periods table. Moves
// DUE -> PAID only as a side effect of a committed settlement.
type MortgageSchedulePeriod struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ContractID    uint       `gorm:"index:idx_contract_period,unique;not null" json:"contract_id"`
	PeriodKey     string     `gorm:"index:idx_contract_period,unique;size:10;not null" json:"period_key"`
	Status        string     `gorm:"size:10;default:'DUE'" json:"status"`
	PrincipalPaid int64      `json:"principal_paid"`
	InterestPaid  int64      `json:"interest_paid"`
	PaidTxnID     string     `gorm:"size:20" json:"paid_txn_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (MortgageSchedulePeriod) TableName() string {
	return "mortgage_schedule_periods"
}

// Savings account status
const (
	SavingsStatusActive = "ACTIVE"
	SavingsStatusClosed = "CLOSED"
)

// SavingsAccount represents savings_accounts table (fixed-term deposit)
type SavingsAccount struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	IdentityID      uint       `gorm:"index;not null" json:"identity_id"`
	AccountNo       string     `gorm:"uniqueIndex;size:20;not null" json:"account_no"`
	Principal       int64      `gorm:"not null" json:"principal"`
	AnnualRate      float64    `gorm:"type:decimal(5,2);not null" json:"annual_rate"`
	EarlyRate       float64    `gorm:"type:decimal(5,2);not null" json:"early_rate"`
	TermMonths      int        `gorm:"not null" json:"term_months"`
	OpenedAt        time.Time  `gorm:"not null" json:"opened_at"`
	Status          string     `gorm:"size:10;default:'ACTIVE'" json:"status"`
	PayoutPrincipal int64      `json:"payout_principal,omitempty"`
	PayoutInterest  int64      `json:"payout_interest,omitempty"`
	ClosedTxnID     string     `gorm:"size:20" json:"closed_txn_id,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SavingsAccount) TableName() string {
	return "savings_accounts"
}

// Bill order status
const (
	BillStatusDue  = "DUE"
	BillStatusPaid = "PAID"
)

// BillOrder represents bill_orders table (utility / bill / booking charges)
type BillOrder struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	IdentityID uint       `gorm:"index;not null" json:"identity_id"`
	BillerCode string     `gorm:"size:20;not null" json:"biller_code"`
	Reference  string     `gorm:"size:50;not null" json:"reference"`
	Amount     int64      `gorm:"not null" json:"amount"`
	Status     string     `gorm:"size:10;default:'DUE'" json:"status"`
	PaidTxnID  string     `gorm:"size:20" json:"paid_txn_id,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (BillOrder) TableName() string {
	return "bill_orders"
}

// AutoMigrate migrates all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Identity{},
		&Account{},
		&LedgerCell{},
		&AuthorizationAttempt{},
		&TransactionRecord{},
		&Notification{},
		&MortgageContract{},
		&MortgageSchedulePeriod{},
		&SavingsAccount{},
		&BillOrder{},
	)
}
