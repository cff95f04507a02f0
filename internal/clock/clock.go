package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time for components that reason about expiry.
type Clock interface {
	Now() time.Time
}

// Module provides the real clock.
var Module = fx.Module("clock",
	fx.Provide(NewRealClock),
)

type RealClock struct{}

func NewRealClock() Clock {
	return RealClock{}
}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
