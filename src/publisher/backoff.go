package publisher

import "time"

// ReconnectDelay returns base * 2^attempt capped at max. A negative attempt gives base.
func ReconnectDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		return base
	}
	// 2^30 seconds is already far past any sane cap.
	if attempt > 30 {
		return max
	}
	delay := base * time.Duration(1<<attempt)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}
