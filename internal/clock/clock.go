package clock

import "time"

// Clock allows injecting time into the lifecycle engine.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always reports the same instant (tests).
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// Offset wraps a clock with a fixed offset (tests that advance time).
type Offset struct {
	Base Clock
	D    time.Duration
}

func (o Offset) Now() time.Time {
	return o.Base.Now().Add(o.D)
}
