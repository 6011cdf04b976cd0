package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/pkg/pincode"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testPin      = "1234"
	testPassword = "demo123456"
	testAccount  = "1000001"
	testPayout   = "1000002"
)

// bcrypt at cost 12 is slow; hash the shared test secrets once
var (
	hashOnce     sync.Once
	testPinHash  string
	testPassHash string
)

func testHashes(t *testing.T) (pinHash, passHash string) {
	t.Helper()
	hashOnce.Do(func() {
		var err error
		testPinHash, err = pincode.Hash(testPin)
		if err != nil {
			panic(err)
		}
		testPassHash, err = pincode.Hash(testPassword)
		if err != nil {
			panic(err)
		}
	})
	return testPinHash, testPassHash
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

// fakeNotifier records dispatched codes and can be told to fail
type fakeNotifier struct {
	mu       sync.Mutex
	sent     []string
	failWith error
}

func (n *fakeNotifier) Send(ctx context.Context, destination, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.sent = append(n.sent, fmt.Sprintf("%s|%s", destination, body))
	return nil
}

func (n *fakeNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// fakeVerifier returns a canned biometric verdict
type fakeVerifier struct {
	result BiometricResult
	err    error
}

func (v *fakeVerifier) Verify(ctx context.Context, reason string) (BiometricResult, error) {
	return v.result, v.err
}

// fakePublisher records published events
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// fixture wires the full service stack over sqlite plus an in-memory
// ledger store
type fixture struct {
	db    *gorm.DB
	cells ledger.Store

	identityRepo *repositories.IdentityRepository
	accountRepo  *repositories.AccountRepository
	attemptRepo  *repositories.AttemptRepository
	txRepo       *repositories.TransactionRepository
	notifRepo    *repositories.NotificationRepository
	mortgageRepo *repositories.MortgageRepository
	savingsRepo  *repositories.SavingsRepository
	billRepo     *repositories.BillRepository

	notifier  *fakeNotifier
	verifier  *fakeVerifier
	publisher *fakePublisher

	lockout    *LockoutService
	sequence   *SequenceService
	pin        *PinService
	biometric  *BiometricService
	otp        *OTPService
	settlement *SettlementService
	authz      *AuthorizationService

	identity *models.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		db:        openTestDB(t),
		cells:     ledger.NewMemoryStore(),
		notifier:  &fakeNotifier{},
		verifier:  &fakeVerifier{result: BiometricResult{Success: true}},
		publisher: &fakePublisher{},
	}

	f.identityRepo = repositories.NewIdentityRepository(f.db)
	f.accountRepo = repositories.NewAccountRepository(f.db)
	f.attemptRepo = repositories.NewAttemptRepository(f.db)
	f.txRepo = repositories.NewTransactionRepository(f.db)
	f.notifRepo = repositories.NewNotificationRepository(f.db)
	f.mortgageRepo = repositories.NewMortgageRepository(f.db)
	f.savingsRepo = repositories.NewSavingsRepository(f.db)
	f.billRepo = repositories.NewBillRepository(f.db)

	f.lockout = NewLockoutService(f.cells, f.identityRepo, f.accountRepo)
	f.sequence = NewSequenceService(f.cells)
	f.pin = NewPinService(f.lockout)
	f.biometric = NewBiometricService(f.verifier, f.lockout)
	f.otp = NewOTPService(f.attemptRepo, f.notifier)
	f.settlement = NewSettlementService(
		f.cells, f.attemptRepo, f.txRepo, f.notifRepo,
		f.mortgageRepo, f.savingsRepo, f.billRepo, f.publisher,
	)
	f.authz = NewAuthorizationService(
		f.identityRepo, f.accountRepo, f.sequence,
		f.pin, f.biometric, f.otp, f.settlement,
	)

	f.identity = f.seedIdentity(t, "demo@spsc.or.th", testAccount, 5_000_000)
	f.seedAccount(t, f.identity.ID, testPayout, "PAYOUT", 0)
	return f
}

func (f *fixture) seedIdentity(t *testing.T, email, accountNo string, balance int64) *models.Identity {
	t.Helper()
	ctx := context.Background()
	pinHash, passHash := testHashes(t)

	identity := &models.Identity{
		FullName:         "Test Customer",
		Email:            email,
		Password:         passHash,
		PinHash:          pinHash,
		PrimaryAccountNo: accountNo,
	}
	require.NoError(t, f.identityRepo.Create(ctx, identity))
	require.NoError(t, f.cells.Set(ctx, ledger.IdentityStatusKey(identity.ID), domain.StatusActive))
	f.seedAccount(t, identity.ID, accountNo, "SETTLEMENT", balance)
	return identity
}

func (f *fixture) seedAccount(t *testing.T, identityID uint, number, kind string, balance int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.accountRepo.Create(ctx, &models.Account{
		Number:     number,
		IdentityID: identityID,
		Kind:       kind,
	}))
	require.NoError(t, f.cells.Set(ctx, ledger.AccountBalanceKey(number), fmt.Sprintf("%d", balance)))
	require.NoError(t, f.cells.Set(ctx, ledger.AccountStatusKey(number), domain.StatusActive))
}

func (f *fixture) balance(t *testing.T, accountNo string) int64 {
	t.Helper()
	raw, err := f.cells.Get(context.Background(), ledger.AccountBalanceKey(accountNo))
	require.NoError(t, err)
	var n int64
	_, err = fmt.Sscanf(raw, "%d", &n)
	require.NoError(t, err)
	return n
}

// begin runs the full Begin gate for a plain transfer and returns the
// issued attempt
func (f *fixture) begin(t *testing.T, amount int64) *BeginResult {
	t.Helper()
	result, err := f.authz.Begin(context.Background(), f.identity.ID, &BeginInput{
		Kind:                 domain.OpTransfer,
		Amount:               amount,
		Pin:                  testPin,
		DestinationAccountNo: "9990001",
		DestinationBank:      "KBANK",
	})
	require.NoError(t, err)
	return result
}

// issuedCode reads the live OTP code straight off the attempt row
func (f *fixture) issuedCode(t *testing.T, txnID string) string {
	t.Helper()
	attempt, err := f.attemptRepo.GetByTxnID(context.Background(), txnID)
	require.NoError(t, err)
	return attempt.OtpCode
}

// expireOtp rewinds the attempt's expiry so confirm/resend see it as past
func (f *fixture) expireOtp(t *testing.T, txnID string) {
	t.Helper()
	attempt, err := f.attemptRepo.GetByTxnID(context.Background(), txnID)
	require.NoError(t, err)
	require.NoError(t, f.attemptRepo.UpdateOtp(context.Background(), txnID, attempt.OtpCode,
		time.Now().Add(-time.Minute)))
}
