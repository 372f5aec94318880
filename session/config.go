package session

import (
	"errors"
	"time"
)

// Tunable bounds for the background loop's queue and buffer sizes: a
// hard min/max range, with a sane default applied whenever a field is
// left at its zero value.
const (
	OutboundQueueCapMin = 1
	OutboundQueueCapMax = 4096

	BroadcastCapMin = 1
	BroadcastCapMax = 65536

	PendingCapMin = 1
	PendingCapMax = 64
)

// Config tunes the resource limits of a Session's background loop. The
// zero value is invalid; call Valid (or use DefaultConfig) before use.
type Config struct {
	// OutboundQueueCap bounds the outbound request queue. Default 16.
	OutboundQueueCap int

	// BroadcastCap bounds each subscriber's response broadcast buffer.
	// Default 64.
	BroadcastCap int

	// PendingCap bounds the number of concurrently in-flight (pending)
	// requests the loop will track before applying backpressure. The
	// default of 4 is deliberately small; it is exposed here mainly so
	// tests can exercise the backpressure window deterministically.
	PendingCap int
}

// Valid applies defaults for any zero field and rejects out-of-range
// values.
func (c *Config) Valid() error {
	if c == nil {
		return errors.New("session: nil config")
	}
	if c.OutboundQueueCap == 0 {
		c.OutboundQueueCap = 16
	} else if c.OutboundQueueCap < OutboundQueueCapMin || c.OutboundQueueCap > OutboundQueueCapMax {
		return errors.New("session: OutboundQueueCap out of range")
	}
	if c.BroadcastCap == 0 {
		c.BroadcastCap = 64
	} else if c.BroadcastCap < BroadcastCapMin || c.BroadcastCap > BroadcastCapMax {
		return errors.New("session: BroadcastCap out of range")
	}
	if c.PendingCap == 0 {
		c.PendingCap = 4
	} else if c.PendingCap < PendingCapMin || c.PendingCap > PendingCapMax {
		return errors.New("session: PendingCap out of range")
	}
	return nil
}

// DefaultConfig returns the default resource limits: queue depth 16,
// broadcast capacity 64, at most 4 concurrently pending requests.
func DefaultConfig() Config {
	return Config{
		OutboundQueueCap: 16,
		BroadcastCap:     64,
		PendingCap:       4,
	}
}

// AutoProbeTimeout is the fixed per-candidate-port budget for connect
// auto: wait at most 5s for an ok-containing line after sending M115.
const AutoProbeTimeout = 5 * time.Second

// AutoProbeReadTimeout is the read timeout the engine's serial dialer sets
// on every port it opens, whether for connect auto's probe or for connect
// serial.
const AutoProbeReadTimeout = 10 * time.Second

// DefaultBaud is used by connect serial when no baud is given.
const DefaultBaud = 115200
