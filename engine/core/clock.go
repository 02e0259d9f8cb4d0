package core

import (
	"errors"
	"time"
)

// Clock measures the time elapsed since Start, refreshed on Update.
type Clock struct {
	now       func() time.Time
	startTime time.Time
	elapsed   time.Duration
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = c.now().Sub(c.startTime)
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = c.now()
	c.elapsed = 0
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

// Elapsed returns the seconds elapsed as of the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed.Seconds()
}

var errTimerRunning = errors.New("timer read before it was stopped")

// Timer measures one span of work, such as a load step.
type Timer struct {
	now     func() time.Time
	start   time.Time
	end     time.Time
	running bool
}

func NewTimer() *Timer {
	return &Timer{now: time.Now}
}

func (t *Timer) Start() {
	t.start = t.now()
	t.running = true
}

func (t *Timer) Stop() {
	t.end = t.now()
	t.running = false
}

// Millis returns the measured span. Reading a running or never started timer is a precondition error.
func (t *Timer) Millis() (float64, error) {
	if err := Check(!t.running && !t.start.IsZero(), "timer millis", "%v", errTimerRunning); err != nil {
		return 0, err
	}
	return float64(t.end.Sub(t.start).Microseconds()) / 1000.0, nil
}
