package main

import (
	"sync"
	"time"
)

// Mode is the visualization state of the voice interface.
type Mode int

const (
	ModeIdle Mode = iota
	ModeListening
	ModeThinking
	ModeSpeaking
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeListening:
		return "listening"
	case ModeThinking:
		return "thinking"
	case ModeSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// StateMachine holds the active mode and at most one pending timer.
// Every operation is total: it cancels whatever timer is armed before
// optionally arming a new one, so a timer can never fire for a state the
// machine has already left. Cancellation is by generation counter — a
// fired callback whose generation no longer matches does nothing.
type StateMachine struct {
	mu              sync.Mutex
	mode            Mode
	autoIdle        bool
	listenTimeout   time.Duration
	thinkingTimeout time.Duration
	timer           *time.Timer
	timerGen        uint64
	listeners       []func(Mode)
}

func NewStateMachine(listenTimeout, thinkingTimeout time.Duration, autoIdle bool) *StateMachine {
	return &StateMachine{
		mode:            ModeIdle,
		autoIdle:        autoIdle,
		listenTimeout:   listenTimeout,
		thinkingTimeout: thinkingTimeout,
	}
}

// Subscribe registers a listener invoked synchronously with the new mode
// on every transition, including timer-forced ones.
func (sm *StateMachine) Subscribe(fn func(Mode)) {
	sm.mu.Lock()
	sm.listeners = append(sm.listeners, fn)
	sm.mu.Unlock()
}

func (sm *StateMachine) Mode() Mode {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.mode
}

func (sm *StateMachine) StartListening() {
	arm := time.Duration(0)
	if sm.autoIdle {
		arm = sm.listenTimeout
	}
	sm.transition(ModeListening, arm)
}

// UpdateVoiceActivity treats continued voice as activity: while listening,
// an active signal cancels and re-arms the idle-fallback timer so speech
// never times out mid-utterance. It has no effect in any other mode.
func (sm *StateMachine) UpdateVoiceActivity(active bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.mode != ModeListening || !active || !sm.autoIdle {
		return
	}
	sm.cancelTimerLocked()
	sm.armTimerLocked(sm.listenTimeout)
}

func (sm *StateMachine) StopListening() {
	sm.transition(ModeIdle, 0)
}

// StartThinking arms a safety timer that forces Idle if nothing else
// transitions first, bounding worst-case stuck-processing exposure.
func (sm *StateMachine) StartThinking() {
	sm.transition(ModeThinking, sm.thinkingTimeout)
}

func (sm *StateMachine) StartSpeaking() {
	sm.transition(ModeSpeaking, 0)
}

func (sm *StateMachine) StopSpeaking() {
	sm.transition(ModeIdle, 0)
}

// SetMode is a direct override to any state; it cancels all timers.
func (sm *StateMachine) SetMode(m Mode) {
	sm.transition(m, 0)
}

// Reset forces Idle and cancels all timers.
func (sm *StateMachine) Reset() {
	sm.transition(ModeIdle, 0)
}

func (sm *StateMachine) transition(to Mode, arm time.Duration) {
	sm.mu.Lock()
	sm.cancelTimerLocked()
	sm.mode = to
	if arm > 0 {
		sm.armTimerLocked(arm)
	}
	ls := append([]func(Mode){}, sm.listeners...)
	sm.mu.Unlock()

	for _, fn := range ls {
		fn(to)
	}
}

func (sm *StateMachine) cancelTimerLocked() {
	sm.timerGen++
	if sm.timer != nil {
		sm.timer.Stop()
		sm.timer = nil
	}
}

func (sm *StateMachine) armTimerLocked(d time.Duration) {
	gen := sm.timerGen
	sm.timer = time.AfterFunc(d, func() { sm.timerFired(gen) })
}

func (sm *StateMachine) timerFired(gen uint64) {
	sm.mu.Lock()
	if gen != sm.timerGen {
		// Lost the race with a cancellation; the state has moved on.
		sm.mu.Unlock()
		return
	}
	sm.timerGen++
	sm.timer = nil
	sm.mode = ModeIdle
	ls := append([]func(Mode){}, sm.listeners...)
	sm.mu.Unlock()

	for _, fn := range ls {
		fn(ModeIdle)
	}
}
