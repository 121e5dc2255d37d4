package resilience

import (
	"fmt"
	"time"
)

// BreakerConfig tunes a Breaker. Zero values take the defaults.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit. Default 5.
	FailureThreshold int
	// SuccessThreshold half-open successes close it again. Default 1.
	SuccessThreshold int
	// OpenTimeout is how long an open circuit fails fast. Default 30s.
	OpenTimeout time.Duration
}

// Rejection is returned by Allow when no request should be sent.
type Rejection struct {
	// RateLimited is true when a Retry-After window is in force rather than
	// an open circuit.
	RateLimited bool
	Wait        time.Duration
}

func (r *Rejection) Error() string {
	if r.RateLimited {
		return fmt.Sprintf("rate limited for another %s", r.Wait)
	}
	return fmt.Sprintf("circuit open for another %s", r.Wait)
}

// Breaker fails requests fast while the API is down or has asked the
// client to back off. Store errors never block a request.
type Breaker struct {
	store  *Store
	config BreakerConfig
	now    func() time.Time
}

// NewBreaker creates a breaker persisting to store.
func NewBreaker(store *Store, config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	return &Breaker{store: store, config: config, now: time.Now}
}

// Allow returns nil when a request may be sent, or a *Rejection saying how
// long to wait. An open circuit whose timeout has passed moves to half-open
// and lets the request through as a probe.
func (b *Breaker) Allow() error {
	st, err := b.store.Load()
	if err != nil {
		return nil
	}
	now := b.now()

	if now.Before(st.RetryAfterUntil) {
		return &Rejection{RateLimited: true, Wait: st.RetryAfterUntil.Sub(now).Round(time.Second)}
	}
	if st.Circuit.State != CircuitOpen {
		return nil
	}
	if wait := b.config.OpenTimeout - now.Sub(st.Circuit.OpenedAt); wait > 0 {
		return &Rejection{Wait: wait.Round(time.Second)}
	}
	_ = b.store.Update(func(s *State) error {
		if s.Circuit.State == CircuitOpen {
			s.Circuit.State = CircuitHalfOpen
			s.Circuit.Successes = 0
			s.UpdatedAt = now
		}
		return nil
	})
	return nil
}

// RecordSuccess notes a request the API answered.
func (b *Breaker) RecordSuccess() {
	st, err := b.store.Load()
	if err == nil && st.Circuit.State == CircuitClosed && st.Circuit.Failures == 0 {
		return
	}
	_ = b.store.Update(func(s *State) error {
		switch s.Circuit.State {
		case CircuitHalfOpen:
			s.Circuit.Successes++
			if s.Circuit.Successes >= b.config.SuccessThreshold {
				s.Circuit.close()
			}
		default:
			s.Circuit.Failures = 0
		}
		s.UpdatedAt = b.now()
		return nil
	})
}

// RecordFailure notes a request the API could not serve.
func (b *Breaker) RecordFailure() {
	_ = b.store.Update(func(s *State) error {
		now := b.now()
		switch s.Circuit.State {
		case CircuitHalfOpen:
			s.Circuit.open(now)
		case CircuitOpen:
		default:
			s.Circuit.State = CircuitClosed
			s.Circuit.Failures++
			if s.Circuit.Failures >= b.config.FailureThreshold {
				s.Circuit.open(now)
			}
		}
		s.UpdatedAt = now
		return nil
	})
}

// BlockFor holds every request back for d.
func (b *Breaker) BlockFor(d time.Duration) {
	if d <= 0 {
		return
	}
	_ = b.store.Update(func(s *State) error {
		now := b.now()
		if until := now.Add(d); until.After(s.RetryAfterUntil) {
			s.RetryAfterUntil = until
		}
		s.UpdatedAt = now
		return nil
	})
}

// State reports the circuit state, treating an expired open circuit as
// half-open.
func (b *Breaker) State() string {
	st, err := b.store.Load()
	if err != nil {
		return CircuitClosed
	}
	if st.Circuit.State == CircuitOpen && b.now().Sub(st.Circuit.OpenedAt) >= b.config.OpenTimeout {
		return CircuitHalfOpen
	}
	if st.Circuit.State == "" {
		return CircuitClosed
	}
	return st.Circuit.State
}

// Reset closes the circuit and lifts any Retry-After window.
func (b *Breaker) Reset() error {
	return b.store.Clear()
}
