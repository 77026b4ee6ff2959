package queue

import "time"

// maxBackoff caps redelivery delays.
const maxBackoff = time.Minute

// ExponentialBackoff returns base * 2^attempt, capped at one minute.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return maxBackoff
	}
	d := base * (1 << attempt)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
