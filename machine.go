package ticksm

import (
	"errors"
	"math"
)

// Callback is a per-state or engine-level hook. Callbacks receive the
// machine they belong to and may call any engine operation except
// Execute itself (the engine is not reentrant).
type Callback func(m *Machine)

// State is one entry in the caller-owned state table. All three callbacks
// are optional; a state without OnExec can be transitioned into but never
// run, and Execute reports ErrNilCallback while it is active.
type State struct {
	OnEntry Callback
	OnExec  Callback
	OnExit  Callback
}

// TransitionMode selects which entry/exit callbacks fire around a switch.
type TransitionMode int

const (
	// TransEntryExit calls the current state's exit callback before the
	// switch and the target's entry callback after. Both callbacks must be
	// present or the transition fails.
	TransEntryExit TransitionMode = iota
	// TransEntry switches first, then calls the target's entry callback,
	// which must be present.
	TransEntry
	// TransExit calls the current state's exit callback (required), then
	// switches with no entry call.
	TransExit
	// TransFast switches with no callback invocation at all.
	TransFast
)

var (
	// ErrInit reports invalid construction arguments.
	ErrInit = errors.New("invalid init arguments")
	// ErrNoInstance reports an operation on a nil or uninitialized machine.
	ErrNoInstance = errors.New("machine not initialized")
	// ErrNilCallback reports that the active state has no exec callback.
	ErrNilCallback = errors.New("active state has no exec callback")
	// ErrDelayed is a control signal, not a fault: execution was deferred
	// by a pending delay or an active break.
	ErrDelayed = errors.New("execution delayed")
	// ErrTransition reports an invalid target index or a missing callback
	// required by the transition mode.
	ErrTransition = errors.New("invalid transition")
	// ErrLocked reports a transition attempted while the transition lock
	// is active and unexpired.
	ErrLocked = errors.New("transitions locked")
)

// noPrevious marks a machine that has not transitioned yet.
const noPrevious = -1

type timestamps struct {
	transTick    Tick // tick of the last successful transition
	lastExecTick Tick // tick of the last exec callback invocation
	breakTick    Tick // tick Break was armed
	lockTick     Tick // tick Lock was armed
	delay        Tick // pending delay, 0 = none
	breakTimeout Tick
	lockTimeout  Tick
}

type controlFlags struct {
	execBreak bool
	transLock bool
}

// Runtime counters. All three saturate at math.MaxUint32 instead of
// wrapping; stateExec additionally resets to zero on every transition.
type stats struct {
	stateExec   uint32
	machineExec uint32
	transitions uint32
}

// Machine is a flat, single-active-state FSM driven from one cooperative
// loop. It borrows the caller's state table and context for its lifetime,
// allocates nothing, and is neither reentrant nor safe for concurrent use
// from multiple goroutines.
type Machine struct {
	states []State
	active int
	prev   int
	clock  Clock

	time  timestamps
	flags controlFlags
	stats stats

	onBreakTimeout Callback
	onTransition   Callback

	ctx any
}

//
// Public API
//

// New allocates a machine and initializes it. See Init.
func New(clock Clock, states []State, start int, ctx any) (*Machine, error) {
	m := &Machine{}
	if err := m.Init(clock, states, start, ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Init (re)initializes the machine with a state table, a starting index,
// and an opaque caller context. Every field is reset, including statistics,
// flags, and registered engine callbacks, so re-initializing an in-use
// machine yields a fresh one. If the start state has an entry callback it
// is invoked as part of initialization.
//
// A failed Init never mutates the machine.
func (m *Machine) Init(clock Clock, states []State, start int, ctx any) error {
	if m == nil {
		return ErrNoInstance
	}
	if clock == nil || len(states) == 0 || start < 0 || start >= len(states) {
		return ErrInit
	}

	*m = Machine{
		states: states,
		active: start,
		prev:   noPrevious,
		clock:  clock,
		ctx:    ctx,
	}

	if entry := states[start].OnEntry; entry != nil {
		entry(m)
	}
	return nil
}

// OnBreakTimeout registers the callback invoked when an execution break
// expires. Pass nil to clear.
func (m *Machine) OnBreakTimeout(cb Callback) error {
	if !m.ready() {
		return ErrNoInstance
	}
	m.onBreakTimeout = cb
	return nil
}

// OnTransition registers the callback invoked after every successful
// transition. Pass nil to clear.
func (m *Machine) OnTransition(cb Callback) error {
	if !m.ready() {
		return ErrNoInstance
	}
	m.onTransition = cb
	return nil
}

// Execute runs one tick of the machine and is meant to be called every
// iteration of the host loop. An expired break is cleared first (firing the
// break-timeout callback once per break cycle), so a break that expires on
// this very tick does not suppress this call. The active state's exec
// callback then runs unless a pending delay has not elapsed or a break is
// still active, in which case Execute returns ErrDelayed with no side
// effects.
//
// At most one exec callback fires per call and the engine never
// transitions on its own.
func (m *Machine) Execute() error {
	if !m.ready() {
		return ErrNoInstance
	}
	now := m.clock.Now()

	if m.flags.execBreak && now-m.time.breakTick >= m.time.breakTimeout {
		m.flags.execBreak = false
		if m.onBreakTimeout != nil {
			m.onBreakTimeout(m)
		}
	}

	exec := m.states[m.active].OnExec
	if exec == nil {
		return ErrNilCallback
	}
	if m.flags.execBreak {
		return ErrDelayed
	}
	if m.time.delay != 0 && now-m.time.lastExecTick < m.time.delay {
		return ErrDelayed
	}

	m.time.delay = 0
	m.time.lastExecTick = now
	exec(m)
	m.stats.stateExec = satInc(m.stats.stateExec)
	m.stats.machineExec = satInc(m.stats.machineExec)
	return nil
}

// Transition switches the active state to target, firing entry/exit
// callbacks according to mode. TransEntryExit requires both the current
// state's exit callback and the target's entry callback; TransEntry
// requires the target's entry callback; TransExit requires the current
// state's exit callback; TransFast requires nothing. Requirements are
// checked before any callback runs, so a failed transition leaves the
// machine untouched.
//
// While the transition lock is armed and unexpired, Transition fails with
// ErrLocked; an expired lock is cleared and the transition proceeds.
func (m *Machine) Transition(mode TransitionMode, target int) error {
	if !m.ready() {
		return ErrNoInstance
	}
	if target < 0 || target >= len(m.states) {
		return ErrTransition
	}
	now := m.clock.Now()

	if m.flags.transLock {
		if now-m.time.lockTick >= m.time.lockTimeout {
			m.flags.transLock = false
		} else {
			return ErrLocked
		}
	}

	cur := &m.states[m.active]
	next := &m.states[target]

	switch mode {
	case TransEntryExit:
		if cur.OnExit == nil || next.OnEntry == nil {
			return ErrTransition
		}
		cur.OnExit(m)
		m.prev, m.active = m.active, target
		next.OnEntry(m)

	case TransEntry:
		if next.OnEntry == nil {
			return ErrTransition
		}
		m.prev, m.active = m.active, target
		next.OnEntry(m)

	case TransExit:
		if cur.OnExit == nil {
			return ErrTransition
		}
		cur.OnExit(m)
		m.prev, m.active = m.active, target

	case TransFast:
		m.prev, m.active = m.active, target

	default:
		return ErrTransition
	}

	m.time.transTick = now
	if m.onTransition != nil {
		m.onTransition(m)
	}
	m.stats.stateExec = 0
	m.stats.transitions = satInc(m.stats.transitions)
	return nil
}

// Delay defers the next exec callback until ticks have elapsed since the
// last execution. It has no effect on a callback already in flight; the
// gate is consulted on the next Execute call and cleared on the first
// execution it permits.
func (m *Machine) Delay(ticks Tick) error {
	if !m.ready() {
		return ErrNoInstance
	}
	m.time.delay = ticks
	return nil
}

// Break suspends the active state's exec callback for timeout ticks.
// Expiry is detected lazily on a subsequent Execute call, which fires the
// registered break-timeout callback and immediately reconsiders whether
// execution may proceed.
func (m *Machine) Break(timeout Tick) error {
	if !m.ready() {
		return ErrNoInstance
	}
	m.time.breakTick = m.clock.Now()
	m.time.breakTimeout = timeout
	m.flags.execBreak = true
	return nil
}

// BreakRelease lifts an execution break immediately. The break-timeout
// callback does not fire for a released break.
func (m *Machine) BreakRelease() error {
	if !m.ready() {
		return ErrNoInstance
	}
	m.flags.execBreak = false
	return nil
}

// Lock rejects all transitions for timeout ticks. An expired lock is
// cleared by the first Transition call that observes the expiry.
func (m *Machine) Lock(timeout Tick) error {
	if !m.ready() {
		return ErrNoInstance
	}
	m.time.lockTick = m.clock.Now()
	m.time.lockTimeout = timeout
	m.flags.transLock = true
	return nil
}

// LockRelease lifts a transition lock immediately.
func (m *Machine) LockRelease() error {
	if !m.ready() {
		return ErrNoInstance
	}
	m.flags.transLock = false
	return nil
}

//
// Introspection
//
// All accessors are pure reads and never fail: on a nil or uninitialized
// machine they return a sentinel (-1 for indices, the type maximum for
// ticks and counters) instead of an error.
//

// StateIndex returns the index of the active state, or -1.
func (m *Machine) StateIndex() int {
	if !m.ready() {
		return -1
	}
	return m.active
}

// PreviousIndex returns the index of the state active before the last
// transition, or -1 before the first transition.
func (m *Machine) PreviousIndex() int {
	if !m.ready() {
		return -1
	}
	return m.prev
}

// TimeInState returns the ticks elapsed since the last transition, or
// MaxTimeout on an uninitialized machine.
func (m *Machine) TimeInState() Tick {
	if !m.ready() {
		return MaxTimeout
	}
	return m.clock.Now() - m.time.transTick
}

// ExecCount returns the exec invocations of the active state since it was
// entered. Resets to zero on every transition.
func (m *Machine) ExecCount() uint32 {
	if !m.ready() {
		return math.MaxUint32
	}
	return m.stats.stateExec
}

// TotalExecCount returns the lifetime exec invocations of the machine.
func (m *Machine) TotalExecCount() uint32 {
	if !m.ready() {
		return math.MaxUint32
	}
	return m.stats.machineExec
}

// TransitionCount returns the lifetime successful transitions.
func (m *Machine) TransitionCount() uint32 {
	if !m.ready() {
		return math.MaxUint32
	}
	return m.stats.transitions
}

// Context returns the opaque caller context stored at Init.
func (m *Machine) Context() any {
	if !m.ready() {
		return nil
	}
	return m.ctx
}

// NumStates returns the size of the state table, or 0.
func (m *Machine) NumStates() int {
	if !m.ready() {
		return 0
	}
	return len(m.states)
}

//
// Helper Functions (internal API)
//

func (m *Machine) ready() bool {
	return m != nil && len(m.states) > 0
}

// satInc increments c, sticking at the maximum instead of wrapping.
func satInc(c uint32) uint32 {
	if c == math.MaxUint32 {
		return c
	}
	return c + 1
}
