package service

import (
	"context"
	"log"
	"time"
)

// MaintenanceStore is the cleanup surface of the sweeper.
type MaintenanceStore interface {
	DeleteExpiredUnverified(ctx context.Context) (int64, error)
	ClearExpiredVerifications(ctx context.Context) (int64, error)
	ClearExpiredPasswordResets(ctx context.Context) (int64, error)
}

// Sweeper periodically removes accounts that never verified and drops
// expired verification and reset challenges. Failures are logged and
// retried on the next tick.
type Sweeper struct {
	store    MaintenanceStore
	interval time.Duration
}

func NewSweeper(store MaintenanceStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: store, interval: interval}
}

// Run blocks until ctx is cancelled. One sweep happens immediately.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if n, err := s.store.DeleteExpiredUnverified(ctx); err != nil {
		log.Printf("[Maintenance] delete expired unverified accounts: %v", err)
	} else if n > 0 {
		log.Printf("[Maintenance] deleted %d expired unverified accounts", n)
	}
	if n, err := s.store.ClearExpiredVerifications(ctx); err != nil {
		log.Printf("[Maintenance] clear expired verification challenges: %v", err)
	} else if n > 0 {
		log.Printf("[Maintenance] cleared %d expired verification challenges", n)
	}
	if n, err := s.store.ClearExpiredPasswordResets(ctx); err != nil {
		log.Printf("[Maintenance] clear expired reset tokens: %v", err)
	} else if n > 0 {
		log.Printf("[Maintenance] cleared %d expired reset tokens", n)
	}
}
