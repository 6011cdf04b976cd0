package services

import (
	"context"
	"errors"
	"strconv"

	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/core/domain"

	"gorm.io/gorm"
)

// AccountService serves read-side account data: balances from the ledger
// cells, transaction history and the notification inbox.
type AccountService struct {
	accountRepo      *repositories.AccountRepository
	transactionRepo  *repositories.TransactionRepository
	notificationRepo *repositories.NotificationRepository
	cells            ledger.Store
}

// NewAccountService creates a new account service
func NewAccountService(
	accountRepo *repositories.AccountRepository,
	transactionRepo *repositories.TransactionRepository,
	notificationRepo *repositories.NotificationRepository,
	cells ledger.Store,
) *AccountService {
	return &AccountService{
		accountRepo:      accountRepo,
		transactionRepo:  transactionRepo,
		notificationRepo: notificationRepo,
		cells:            cells,
	}
}

// AccountBalance represents one account with its current ledger balance
type AccountBalance struct {
	Number  string `json:"number"`
	Kind    string `json:"kind"`
	Balance int64  `json:"balance"`
	Status  string `json:"status"`
}

// ListBalances returns the caller's accounts with balances read from the
// ledger cells
func (s *AccountService) ListBalances(ctx context.Context, identityID uint) ([]*AccountBalance, error) {
	accounts, err := s.accountRepo.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	balances := make([]*AccountBalance, 0, len(accounts))
	for _, account := range accounts {
		balance, err := s.readBalance(ctx, account.Number)
		if err != nil {
			return nil, err
		}
		status, err := s.readStatus(ctx, account.Number)
		if err != nil {
			return nil, err
		}
		balances = append(balances, &AccountBalance{
			Number:  account.Number,
			Kind:    account.Kind,
			Balance: balance,
			Status:  status,
		})
	}
	return balances, nil
}

// GetBalance returns a single account balance, rejecting accounts owned by
// another identity as NotFound
func (s *AccountService) GetBalance(ctx context.Context, identityID uint, accountNo string) (*AccountBalance, error) {
	account, err := s.accountRepo.GetByNumber(ctx, accountNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if account.IdentityID != identityID {
		return nil, domain.ErrNotFound
	}

	balance, err := s.readBalance(ctx, account.Number)
	if err != nil {
		return nil, err
	}
	status, err := s.readStatus(ctx, account.Number)
	if err != nil {
		return nil, err
	}
	return &AccountBalance{
		Number:  account.Number,
		Kind:    account.Kind,
		Balance: balance,
		Status:  status,
	}, nil
}

// History returns the caller's most recent settled transactions
func (s *AccountService) History(ctx context.Context, identityID uint, limit int) ([]*models.TransactionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.transactionRepo.ListByIdentity(ctx, identityID, limit)
}

// Notifications returns the caller's notification inbox, newest first
func (s *AccountService) Notifications(ctx context.Context, identityID uint, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.notificationRepo.ListByIdentity(ctx, identityID, limit)
}

func (s *AccountService) readBalance(ctx context.Context, accountNo string) (int64, error) {
	raw, err := s.cells.Get(ctx, ledger.AccountBalanceKey(accountNo))
	if err != nil {
		if errors.Is(err, ledger.ErrCellNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *AccountService) readStatus(ctx context.Context, accountNo string) (string, error) {
	raw, err := s.cells.Get(ctx, ledger.AccountStatusKey(accountNo))
	if err != nil {
		if errors.Is(err, ledger.ErrCellNotFound) {
			return domain.StatusActive, nil
		}
		return "", err
	}
	return raw, nil
}
