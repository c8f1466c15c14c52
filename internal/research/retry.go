package research

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/safescan/pkg/anthropic"
)

// RetryConfig controls how a failed generation call is retried with
// exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// Default: 1, relying on the SDK's own transport retries.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry. Default: 2s.
	InitialBackoff time.Duration
	// MaxBackoff caps any single delay. Default: 30s.
	MaxBackoff time.Duration
	// JitterFraction spreads each delay by ±fraction. Default: 0.25;
	// negative disables jitter.
	JitterFraction float64
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	} else if c.JitterFraction == 0 {
		c.JitterFraction = 0.25
	}
	return c
}

// retryGenerate calls fn until it succeeds, fails permanently, runs out of
// attempts, or ctx is done. It returns the last error.
func retryGenerate(ctx context.Context, cfg RetryConfig, jobID string, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isTransient(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := backoff(attempt, cfg)
		zap.L().Warn("research: retrying generation",
			zap.String("job_id", jobID),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", lastErr
		case <-timer.C:
		}
	}
	return "", lastErr
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		spread := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
}

// isTransient reports whether a generation failure is worth another attempt.
// Malformed output and missing configuration are not.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, ErrGeneratorUnavailable) || errors.Is(err, ErrMalformedReport) {
		return false
	}
	if anthropic.StatusCode(err) != 0 {
		return anthropic.IsRetryable(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
