package ticksm

import (
	"math"
	"sync/atomic"
)

// Tick is the engine's time unit: an opaque, monotonically increasing
// unsigned value supplied by the host. Elapsed-time comparisons are done
// with unsigned subtraction, so timeout math stays correct across
// wraparound as long as no single timeout exceeds the type's range.
type Tick uint32

// MaxTimeout is the largest representable timeout and the sentinel
// returned by TimeInState on an uninitialized machine.
const MaxTimeout Tick = math.MaxUint32

// Clock supplies the current tick to a machine. The host owns advancing
// the underlying counter or timer; the engine only ever reads it.
type Clock interface {
	Now() Tick
}

// TickFunc adapts a plain function to the Clock interface, for hosts that
// expose their tick through an accessor (a HAL millisecond getter, a
// simulation step counter, and so on).
type TickFunc func() Tick

func (f TickFunc) Now() Tick { return f() }

// Counter is a Clock backed by a shared counter the host advances
// externally, typically from a periodic timer. Loads and stores are atomic
// so the updater may run on a different goroutine than the machine's loop;
// the machine itself still requires single-context invocation.
type Counter struct {
	v atomic.Uint32
}

func (c *Counter) Now() Tick { return Tick(c.v.Load()) }

// Set overwrites the counter value.
func (c *Counter) Set(t Tick) { c.v.Store(uint32(t)) }

// Advance adds d to the counter and returns the new value.
func (c *Counter) Advance(d Tick) Tick { return Tick(c.v.Add(uint32(d))) }
