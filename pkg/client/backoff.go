package client

import "time"

const (
	backoffBase = time.Second
	backoffCap  = 30 * time.Second
)

// Delay returns the reconnect delay for the given attempt number,
// doubling from one second up to a thirty second ceiling.
func Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return backoffCap
	}
	d := backoffBase << uint(attempt)
	if d > backoffCap {
		d = backoffCap
	}
	return d
}
