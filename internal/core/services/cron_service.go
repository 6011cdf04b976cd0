package services

import (
	"context"
	"log"
	"time"

	"spsc-mbanking/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// staleAfter is how far past its OTP expiry an unconfirmed attempt may sit
// before the sweeper archives it. The margin keeps the at/after-expiry
// resend window usable; confirm enforces the exact expiry itself.
const staleAfter = 15 * time.Minute

// CronService periodically marks abandoned PENDING attempts EXPIRED.
type CronService struct {
	attemptRepo *repositories.AttemptRepository
	cron        *cron.Cron
}

// NewCronService creates a new cron service
func NewCronService(attemptRepo *repositories.AttemptRepository) *CronService {
	return &CronService{
		attemptRepo: attemptRepo,
		cron:        cron.New(),
	}
}

// Start schedules the expiry sweep
func (s *CronService) Start() {
	s.cron.AddFunc("@every 1m", s.sweepExpired)
	s.cron.Start()
	log.Println("✅ Cron service started (attempt expiry sweep every 1m)")
}

// Stop stops the scheduler
func (s *CronService) Stop() {
	s.cron.Stop()
}

func (s *CronService) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-staleAfter)
	n, err := s.attemptRepo.ExpireStale(ctx, cutoff)
	if err != nil {
		log.Printf("⚠️ Attempt expiry sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 Expired %d abandoned authorization attempts", n)
	}
}
