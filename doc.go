// Package ticksm is a cooperative, non-reentrant finite-state-machine
// engine for tick-driven control loops.
//
// The host supplies a monotonically increasing tick through a Clock and
// calls Execute on every loop iteration; the machine runs the active
// state's exec callback subject to pending delays and execution breaks,
// and switches states only when the host (usually from inside a callback)
// asks for a transition. All operations are synchronous and bounded, the
// engine allocates nothing after Init, and a single instance must be
// driven from one execution context.
//
//	var clock ticksm.Counter
//	m, err := ticksm.New(&clock, states, 0, nil)
//	...
//	for {
//		clock.Advance(1)
//		switch err := m.Execute(); err {
//		case nil, ticksm.ErrDelayed:
//		default:
//			// surface it
//		}
//	}
package ticksm
