// Package timer implements the per-question countdown used during an attempt.
//
// A Controller holds at most one active countdown. Every Start hands out a new
// Handle and invalidates the previous one, so an expiry can always be matched
// against the handle its owner currently considers active.
package timer

type Handle uint64

// NoHandle is never returned by Start.
const NoHandle Handle = 0

type Urgency int

const (
	UrgencyNominal Urgency = iota
	UrgencyWarning
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyWarning:
		return "warning"
	case UrgencyCritical:
		return "critical"
	default:
		return "nominal"
	}
}

func (u Urgency) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// Tier maps remaining seconds to a presentation tier:
// at least half left is nominal, at least a fifth is warning, below that critical.
func Tier(remaining, limit int) Urgency {
	if limit <= 0 {
		return UrgencyNominal
	}
	switch {
	case remaining*100 >= limit*50:
		return UrgencyNominal
	case remaining*100 >= limit*20:
		return UrgencyWarning
	default:
		return UrgencyCritical
	}
}

// Controller is not safe for concurrent use; its owner serializes calls.
type Controller struct {
	onExpire func(Handle)

	last      Handle
	active    Handle
	limit     int
	remaining int
}

// New returns a Controller that calls onExpire once per started countdown
// that reaches zero without being cancelled or replaced.
func New(onExpire func(Handle)) *Controller {
	return &Controller{onExpire: onExpire}
}

// Start begins a countdown of limitSec seconds, replacing any active one.
func (c *Controller) Start(limitSec int) Handle {
	if limitSec < 1 {
		limitSec = 1
	}
	c.last++
	c.active = c.last
	c.limit = limitSec
	c.remaining = limitSec
	return c.active
}

// Cancel stops the countdown if h is still the active one.
func (c *Controller) Cancel(h Handle) bool {
	if h == NoHandle || h != c.active {
		return false
	}
	c.active = NoHandle
	return true
}

// Tick advances the active countdown by one second.
func (c *Controller) Tick() {
	if c.active == NoHandle {
		return
	}
	c.remaining--
	if c.remaining > 0 {
		return
	}
	h := c.active
	c.active = NoHandle
	c.remaining = 0
	if c.onExpire != nil {
		c.onExpire(h)
	}
}

func (c *Controller) Active() Handle { return c.active }
func (c *Controller) Limit() int     { return c.limit }
func (c *Controller) Remaining() int { return c.remaining }

// Elapsed is the number of whole seconds consumed by the latest countdown.
func (c *Controller) Elapsed() int { return c.limit - c.remaining }

func (c *Controller) Urgency() Urgency { return Tier(c.remaining, c.limit) }
