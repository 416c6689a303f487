package reconnect

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"tradecouncil/pkg/logger"
)

// Manager paces retries against a flaky backend with exponential backoff and
// a circuit breaker. An open circuit never stops retries; it only stretches
// the wait to CircuitResetAfter until a success closes it again.
type Manager struct {
	minBackoff        time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	maxRetries        int
	circuitResetAfter time.Duration
	jitter            float64

	mu                  sync.Mutex
	currentBackoff      time.Duration
	consecutiveFailures int
	totalRecoveries     int
	circuitOpen         bool
	circuitOpenedAt     time.Time

	now    func() time.Time
	logger *logger.Logger
}

// Config configures the reconnect manager
type Config struct {
	MinBackoff        time.Duration // Initial backoff (e.g. 1s)
	MaxBackoff        time.Duration // Max backoff (e.g. 1min)
	BackoffMultiplier float64       // Multiplier for exponential backoff (e.g. 2.0)
	MaxRetries        int           // Consecutive failures before the circuit opens (0 = never)
	CircuitResetAfter time.Duration // Wait while the circuit is open (e.g. 5min)
	Jitter            float64       // Fraction of the backoff added at random, in [0,1]
}

// NewManager creates a new reconnect manager with sensible defaults
func NewManager(config Config, log *logger.Logger) *Manager {
	if config.MinBackoff <= 0 {
		config.MinBackoff = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = time.Minute
	}
	if config.MaxBackoff < config.MinBackoff {
		config.MaxBackoff = config.MinBackoff
	}
	if config.BackoffMultiplier < 1 {
		config.BackoffMultiplier = 2.0
	}
	if config.CircuitResetAfter <= 0 {
		config.CircuitResetAfter = 5 * time.Minute
	}
	if config.Jitter < 0 || config.Jitter > 1 {
		config.Jitter = 0
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Manager{
		minBackoff:        config.MinBackoff,
		maxBackoff:        config.MaxBackoff,
		backoffMultiplier: config.BackoffMultiplier,
		maxRetries:        config.MaxRetries,
		circuitResetAfter: config.CircuitResetAfter,
		jitter:            config.Jitter,
		currentBackoff:    config.MinBackoff,
		now:               time.Now,
		logger:            log,
	}
}

// RecordFailure grows the backoff and returns the wait before the next attempt
func (m *Manager) RecordFailure() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutiveFailures++

	wait := m.currentBackoff
	if m.consecutiveFailures > 1 {
		wait = time.Duration(float64(m.currentBackoff) * m.backoffMultiplier)
		if wait > m.maxBackoff {
			wait = m.maxBackoff
		}
	}
	m.currentBackoff = wait

	if m.maxRetries > 0 && m.consecutiveFailures >= m.maxRetries && !m.circuitOpen {
		m.circuitOpen = true
		m.circuitOpenedAt = m.now()

		m.logger.Errorw("🔴 Circuit breaker OPENED - too many consecutive failures",
			"consecutive_failures", m.consecutiveFailures,
			"max_retries", m.maxRetries,
			"circuit_reset_after", m.circuitResetAfter,
		)
	}
	if m.circuitOpen {
		wait = m.circuitResetAfter
	}

	return CalculateJitter(wait, m.jitter)
}

// RecordSuccess resets the backoff and closes the circuit
func (m *Manager) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consecutiveFailures == 0 {
		return
	}

	m.logger.Infow("✅ Backend recovered, resetting backoff",
		"previous_consecutive_failures", m.consecutiveFailures,
	)
	if m.circuitOpen {
		m.logger.Infow("🟢 Circuit breaker CLOSED", "open_for", m.now().Sub(m.circuitOpenedAt))
	}

	m.currentBackoff = m.minBackoff
	m.consecutiveFailures = 0
	m.totalRecoveries++
	m.circuitOpen = false
	m.circuitOpenedAt = time.Time{}
}

// Wait records a failure and sleeps for the resulting backoff.
// Returns ctx.Err() if ctx ends first.
func (m *Manager) Wait(ctx context.Context) error {
	wait := m.RecordFailure()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stats contains backoff statistics
type Stats struct {
	ConsecutiveFailures int
	TotalRecoveries     int
	CurrentBackoff      time.Duration
	CircuitOpen         bool
	CircuitOpenedAt     time.Time
}

// GetStats returns current reconnect manager stats
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		ConsecutiveFailures: m.consecutiveFailures,
		TotalRecoveries:     m.totalRecoveries,
		CurrentBackoff:      m.currentBackoff,
		CircuitOpen:         m.circuitOpen,
		CircuitOpenedAt:     m.circuitOpenedAt,
	}
}

// CalculateJitter adds up to jitterPercent of duration at random to prevent thundering herd
func CalculateJitter(duration time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 || jitterPercent > 1 || duration <= 0 {
		return duration
	}

	maxJitter := float64(duration) * jitterPercent
	return duration + time.Duration(rand.Float64()*maxJitter)
}
