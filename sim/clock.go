// Defines the simulation clock. Simulated time is discretized into slots
// (one slot = one hour of one day); the clock only ever moves forward, one
// slot per tick, and becomes terminal once the configured number of days
// has elapsed.

package sim

// Clock tracks the current position on the day/hour grid.
// It is owned exclusively by the orchestration loop and is deliberately
// not safe for concurrent use: nothing else may advance simulated time.
type Clock struct {
	slot        int64 // monotonically increasing slot counter
	slotsPerDay int64
	totalDays   int64
}

// NewClock creates a clock positioned at slot 0 (day 0, hour 0).
// slotsPerDay and totalDays must both be > 0; validated by Config.Validate.
func NewClock(slotsPerDay, totalDays int64) *Clock {
	return &Clock{
		slot:        0,
		slotsPerDay: slotsPerDay,
		totalDays:   totalDays,
	}
}

// Current returns the absolute slot counter plus its derived day and
// hour-of-day components.
func (c *Clock) Current() (slot, day, hour int64) {
	return c.slot, c.slot / c.slotsPerDay, c.slot % c.slotsPerDay
}

// Advance moves the clock forward by exactly one slot.
// It returns false, without advancing, once the next slot would belong to
// day totalDays; from then on the clock is terminal and every further call
// returns false.
func (c *Clock) Advance() bool {
	if (c.slot+1)/c.slotsPerDay >= c.totalDays {
		return false
	}
	c.slot++
	return true
}

// Terminal reports whether the clock can no longer advance.
func (c *Clock) Terminal() bool {
	return (c.slot+1)/c.slotsPerDay >= c.totalDays
}

// SlotsPerDay returns the number of hourly slots per simulated day.
func (c *Clock) SlotsPerDay() int64 {
	return c.slotsPerDay
}
