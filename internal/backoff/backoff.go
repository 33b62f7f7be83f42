// Package backoff computes capped exponential reconnect delays.
package backoff

import "time"

// Policy defines the parameters for exponential backoff calculation.
type Policy struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the delay for every retry.
	Max time.Duration
	// Factor is the multiplier applied on each subsequent attempt.
	Factor float64
}

// ReconnectPolicy is the policy used by the space client: 1s floor, 5s
// ceiling, doubling each attempt, giving 1s, 2s, 4s, 5s, 5s, ...
func ReconnectPolicy() Policy {
	return Policy{
		Initial: 1000 * time.Millisecond,
		Max:     5000 * time.Millisecond,
		Factor:  2,
	}
}

// Delay returns the wait before the given attempt. Attempts start at 1;
// anything lower is treated as the first attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.Initial
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Factor)
		if delay >= p.Max {
			return p.Max
		}
	}
	if delay > p.Max {
		return p.Max
	}
	return delay
}
