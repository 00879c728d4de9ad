package feed

import (
	"math"
	"time"
)

// backoff computes retry delays for transient feed failures.
type backoff struct {
	baseDelay time.Duration
	maxDelay  time.Duration
	factor    float64
}

func defaultBackoff() backoff {
	return backoff{
		baseDelay: 500 * time.Millisecond,
		maxDelay:  30 * time.Second,
		factor:    2.0,
	}
}

// nextDelay returns the delay for the given zero-based attempt count.
func (b backoff) nextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(b.baseDelay) * math.Pow(b.factor, float64(attempt))
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	return time.Duration(delay)
}
