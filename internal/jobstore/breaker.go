package jobstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the primary backend is skipped because its
// breaker is open.
var ErrCircuitOpen = eris.New("jobstore: primary circuit is open")

// CircuitState is the breaker state guarding the primary backend.
type CircuitState int

const (
	// CircuitClosed sends every call to the primary.
	CircuitClosed CircuitState = iota
	// CircuitOpen sends every call straight to the fallback.
	CircuitOpen
	// CircuitHalfOpen lets one probe call through to the primary; calls
	// arriving while it is in flight go to the fallback.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when the primary is considered down.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit. Default: 3.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a probe. Default: 30s.
	ResetTimeout time.Duration
}

// DefaultBreakerConfig returns the defaults used by Open.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, ResetTimeout: 30 * time.Second}
}

type breaker struct {
	name string
	cfg  BreakerConfig

	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	probing             bool

	nowFunc func() time.Time
}

func newBreaker(name string, cfg BreakerConfig) *breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	return &breaker{name: name, cfg: cfg, nowFunc: time.Now}
}

// execute runs fn unless the circuit is open. ErrNotFound is an answer from a
// healthy backend and never counts as a failure.
func (b *breaker) execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

func (b *breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.nowFunc().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return CircuitHalfOpen
	}
	return b.state
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if b.nowFunc().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return ErrCircuitOpen
		}
		b.transition(CircuitHalfOpen)
		b.probing = true
		return nil
	case CircuitHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	if err == nil || errors.Is(err, ErrNotFound) {
		b.consecutiveFailures = 0
		if b.state != CircuitClosed {
			b.transition(CircuitClosed)
		}
		return
	}

	b.consecutiveFailures++
	switch b.state {
	case CircuitClosed:
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.openedAt = b.nowFunc()
			b.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		b.openedAt = b.nowFunc()
		b.transition(CircuitOpen)
	}
}

func (b *breaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	zap.L().Warn("jobstore: circuit state change",
		zap.String("backend", b.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("consecutive_failures", b.consecutiveFailures),
	)
}
