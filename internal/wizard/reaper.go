package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-bot/internal/logger"
)

const reaperInterval = time.Minute

// ExpireIdle removes sessions untouched for longer than ttl and closes their
// prompts. It returns the number of sessions removed.
func (m *Machine) ExpireIdle(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := m.cfg.Now().Add(-ttl)
	expired, err := m.cfg.Registry.Expired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ExpireIdle: list expired: %w", err)
	}

	n := 0
	for _, s := range expired {
		ok, err := m.expire(ctx, s, cutoff)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// expire re-checks s under the user lock, since the user may have acted
// after the sweep listed it.
func (m *Machine) expire(ctx context.Context, s *Session, cutoff time.Time) (bool, error) {
	unlock := m.locks.lock(s.UserID)
	defer unlock()

	current, err := m.cfg.Registry.Get(ctx, s.UserID)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ExpireIdle: get session: %w", err)
	}
	if current.ID != s.ID || !current.UpdatedAt.Before(cutoff) {
		return false, nil
	}

	if _, err := m.terminate(ctx, s.UserID, textExpired); err != nil {
		return false, fmt.Errorf("ExpireIdle: %w", err)
	}
	return true, nil
}

// StartSessionReaper expires idle sessions every minute until ctx is done.
func StartSessionReaper(ctx context.Context, m *Machine, ttl time.Duration) {
	ticker := time.NewTicker(reaperInterval)
	go func() {
		defer ticker.Stop()
		log := logger.FromContext(ctx)
		log.Info().Dur("ttl", ttl).Dur("interval", reaperInterval).Msg("Session reaper started")

		for {
			select {
			case <-ticker.C:
				n, err := m.ExpireIdle(ctx, ttl)
				if err != nil {
					log.Error().Err(err).Msg("Session reaper failed")
					continue
				}
				if n > 0 {
					log.Info().Int("expired", n).Msg("Expired idle sessions")
				}
			case <-ctx.Done():
				log.Info().Msg("Session reaper shutting down")
				return
			}
		}
	}()
}
