package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/pkg/pincode"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db    *gorm.DB
	cells ledger.Store
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cells ledger.Store) *Seeder {
	return &Seeder{db: db, cells: cells}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedDemoIdentity(); err != nil {
		log.Printf("⚠️ Demo identity seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedDemoIdentity seeds a demo customer with funded accounts, an active
// mortgage, a fixed-term savings deposit and one due bill.
// This is for development/testing only.
func (s *Seeder) seedDemoIdentity() error {
	// Check if demo customer already exists
	var count int64
	s.db.Model(&models.Identity{}).Where("email = ?", "demo@spsc.or.th").Count(&count)
	if count > 0 {
		return nil // Already seeded
	}

	ctx := context.Background()

	passwordHash, err := pincode.Hash("demo123456")
	if err != nil {
		return err
	}
	pinHash, err := pincode.Hash("1234")
	if err != nil {
		return err
	}

	identity := &models.Identity{
		FullName:         "Demo Customer",
		Email:            "demo@spsc.or.th",
		Password:         passwordHash,
		PinHash:          pinHash,
		PrimaryAccountNo: "1000001",
	}
	if err := s.db.Create(identity).Error; err != nil {
		return err
	}

	accounts := []models.Account{
		{Number: "1000001", IdentityID: identity.ID, Kind: "SETTLEMENT"},
		{Number: "1000002", IdentityID: identity.ID, Kind: "PAYOUT"},
	}
	if err := s.db.Create(&accounts).Error; err != nil {
		return err
	}

	// Ledger cells: balances and statuses live here, not in the rows above
	if err := s.cells.Set(ctx, ledger.AccountBalanceKey("1000001"), "5000000"); err != nil {
		return err
	}
	if err := s.cells.Set(ctx, ledger.AccountBalanceKey("1000002"), "0"); err != nil {
		return err
	}
	for _, no := range []string{"1000001", "1000002"} {
		if err := s.cells.Set(ctx, ledger.AccountStatusKey(no), domain.StatusActive); err != nil {
			return err
		}
	}
	if err := s.cells.Set(ctx, ledger.IdentityStatusKey(identity.ID), domain.StatusActive); err != nil {
		return err
	}

	// Mortgage with the first three monthly periods due
	contract := &models.MortgageContract{
		IdentityID:       identity.ID,
		ContractNo:       "MG-2026-0001",
		OriginalAmount:   36_000_000,
		Outstanding:      36_000_000,
		AnnualRate:       4.5,
		TermMonths:       36,
		PaymentAccountNo: "1000001",
	}
	if err := s.db.Create(contract).Error; err != nil {
		return err
	}
	for i := 1; i <= 3; i++ {
		period := &models.MortgageSchedulePeriod{
			ContractID: contract.ID,
			PeriodKey:  fmt.Sprintf("2026-%02d", i),
			Status:     models.PeriodStatusDue,
		}
		if err := s.db.Create(period).Error; err != nil {
			return err
		}
	}

	// Twelve-month deposit opened four months ago
	savings := &models.SavingsAccount{
		IdentityID: identity.ID,
		AccountNo:  "SV-0001",
		Principal:  1_200_000,
		AnnualRate: 3.0,
		EarlyRate:  0.5,
		TermMonths: 12,
		OpenedAt:   time.Now().AddDate(0, -4, 0),
		Status:     models.SavingsStatusActive,
	}
	if err := s.db.Create(savings).Error; err != nil {
		return err
	}

	bill := &models.BillOrder{
		IdentityID: identity.ID,
		BillerCode: "MEA",
		Reference:  "INV-2026-08-0042",
		Amount:     184_500,
		Status:     models.BillStatusDue,
	}
	if err := s.db.Create(bill).Error; err != nil {
		return err
	}

	log.Printf("✅ Demo customer created: %s", identity.Email)
	return nil
}
