package reveal

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/12008yz/chibox-reveal/internal/models"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseSpinning Phase = "spinning"
	PhaseSlowing  Phase = "slowing"
	PhaseStopped  Phase = "stopped"
)

// Timing holds the deceleration and dwell constants. They are product feel
// tuning, so they live in configuration rather than the code.
type Timing struct {
	StartupDelay time.Duration // before the first step, after the reel reset
	FastStep     time.Duration // constant step delay while spinning
	SlowdownStep time.Duration // extra delay blended in over the slowdown window
	// SlowdownWindow is the number of trailing available-list steps over
	// which the delay grows from FastStep to FastStep+SlowdownStep.
	SlowdownWindow    int
	MinSlowdownFactor float64

	SparksDelay time.Duration // post-stop: decorative sparks
	StrikeDelay time.Duration // post-stop: daily-case strike-through
	DwellNormal time.Duration // post-stop: completion, generic case
	DwellDaily  time.Duration // post-stop: completion, daily case
}

func DefaultTiming() Timing {
	return Timing{
		StartupDelay:      500 * time.Millisecond,
		FastStep:          150 * time.Millisecond,
		SlowdownStep:      300 * time.Millisecond,
		SlowdownWindow:    7,
		MinSlowdownFactor: 0.1,
		SparksDelay:       1000 * time.Millisecond,
		StrikeDelay:       2000 * time.Millisecond,
		DwellNormal:       3500 * time.Millisecond,
		DwellDaily:        5000 * time.Millisecond,
	}
}

// Session drives one reveal: a cursor walk over the pool's available list
// that decelerates into the server-chosen winning item. The cursor only ever
// advances, never skips the target, and the session terminates exactly on it.
// Only the session's own timer chain mutates state, under the session mutex.
type Session struct {
	id     string
	pool   *Pool
	daily  bool
	timing Timing
	clock  Clock

	onEvent    func(Event)
	onComplete func()

	mu       sync.Mutex
	phase    Phase
	cursor   int
	target   int
	winning  models.CaseItem
	sparks   bool
	strike   bool
	degraded bool
	invalid  bool
	timers   []Timer
}

func NewSession(pool *Pool, daily bool, timing Timing, clock Clock, onEvent func(Event), onComplete func()) *Session {
	if clock == nil {
		clock = SystemClock()
	}
	return &Session{
		id:         uuid.NewString(),
		pool:       pool,
		daily:      daily,
		timing:     timing,
		clock:      clock,
		onEvent:    onEvent,
		onComplete: onComplete,
		phase:      PhaseIdle,
		target:     -1,
	}
}

func (s *Session) ID() string { return s.id }

// Start begins the reveal for the given winning item. If the item is missing
// from the pool the session degrades to an instant reveal: no animation, the
// item shown at once, with the usual post-stop sequence and completion.
func (s *Session) Start(winning models.CaseItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalid {
		return fmt.Errorf("session %s is invalidated", s.id)
	}
	if s.phase != PhaseIdle {
		return fmt.Errorf("session %s already started (phase %s)", s.id, s.phase)
	}

	s.winning = winning
	s.cursor = 0
	s.target = s.pool.TargetFor(winning.ID)

	if s.target < 0 {
		// Recoverable degrade, never surfaced: land instantly, then play
		// the usual post-stop sequence so completion still fires.
		s.degraded = true
		s.emitLocked(EventDegraded)
		s.stopLocked()
		return nil
	}

	// The reel is visually reset to the top before anything moves.
	s.phase = PhaseSpinning
	s.emitLocked(EventStarted)
	s.scheduleLocked(s.timing.StartupDelay, s.step)
	return nil
}

// step advances the cursor by one and either stops on the target or
// reschedules itself with a freshly computed delay.
func (s *Session) step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalid || s.phase == PhaseStopped || s.phase == PhaseIdle {
		return
	}

	if s.cursor < s.target {
		s.cursor++
		if s.cursor > s.slowdownStart() {
			s.phase = PhaseSlowing
		}
		s.emitLocked(EventStep)
		if s.cursor < s.target {
			s.scheduleLocked(s.stepDelay(), s.step)
			return
		}
	}

	s.stopLocked()
}

// slowdownStart is the last cursor position that still steps at full speed.
func (s *Session) slowdownStart() int {
	start := s.target - s.timing.SlowdownWindow
	if start < 0 {
		start = 0
	}
	return start
}

// stepDelay computes the wait before the next step. Constant while spinning,
// then growing smoothly over the last SlowdownWindow steps as the cursor
// closes on the target.
func (s *Session) stepDelay() time.Duration {
	if s.cursor <= s.slowdownStart() {
		return s.timing.FastStep
	}
	stepsLeft := s.target - s.cursor
	factor := float64(stepsLeft) / float64(s.timing.SlowdownWindow)
	if factor < s.timing.MinSlowdownFactor {
		factor = s.timing.MinSlowdownFactor
	}
	return s.timing.FastStep + time.Duration((1-factor)*float64(s.timing.SlowdownStep))
}

// stopLocked lands the reel on the winning item and schedules the post-stop
// effect sequence: sparks, the daily-case strike-through, then completion.
func (s *Session) stopLocked() {
	s.phase = PhaseStopped
	s.emitLocked(EventStopped)

	s.scheduleLocked(s.timing.SparksDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.invalid || s.phase != PhaseStopped {
			return
		}
		s.sparks = true
		s.emitLocked(EventSparks)
	})

	if s.daily {
		s.scheduleLocked(s.timing.StrikeDelay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.invalid || s.phase != PhaseStopped {
				return
			}
			s.strike = true
			s.emitLocked(EventStrike)
		})
	}

	dwell := s.timing.DwellNormal
	if s.daily {
		// The daily case plays an extra already-obtained sequence, so its
		// completion waits for the strike-through to finish.
		dwell = s.timing.DwellDaily
	}
	s.scheduleLocked(dwell, s.complete)
}

// complete resets the session to idle and reports the reveal as finished.
// It fires at most once per session and never after invalidation.
func (s *Session) complete() {
	s.mu.Lock()
	if s.invalid || s.phase != PhaseStopped {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseIdle
	s.cursor = 0
	s.sparks = false
	s.strike = false
	s.emitLocked(EventCompleted)
	cb := s.onComplete
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Invalidate tears the session down: every pending timer is stopped and no
// further events or callbacks fire. Used when the hosting view goes away.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalid = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.phase = PhaseIdle
	s.cursor = 0
	s.sparks = false
	s.strike = false
}

// State is a read-only snapshot of the session for the presentation layer.
type State struct {
	SessionID    string
	Phase        Phase
	Cursor       int
	Target       int
	DisplayIndex int
	Winning      *models.CaseItem
	Sparks       bool
	Strike       bool
	Daily        bool
	Degraded     bool
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		SessionID:    s.id,
		Phase:        s.phase,
		Cursor:       s.cursor,
		Target:       s.target,
		DisplayIndex: s.displayIndexLocked(),
		Sparks:       s.sparks,
		Strike:       s.strike,
		Daily:        s.daily,
		Degraded:     s.degraded,
	}
	if s.winning.ID != "" {
		w := s.winning
		st.Winning = &w
	}
	return st
}

// displayIndexLocked maps the cursor back through the exclusion filter to
// the full-list position the presentation highlights. A degraded session has
// no reel position; it shows the winning item directly.
func (s *Session) displayIndexLocked() int {
	if s.degraded {
		return -1
	}
	if s.phase == PhaseStopped {
		return s.pool.FullIndex(s.target)
	}
	return s.pool.FullIndex(s.cursor)
}

func (s *Session) emitLocked(kind EventKind) {
	if s.onEvent == nil {
		return
	}
	ev := Event{
		Kind:         kind,
		SessionID:    s.id,
		Phase:        s.phase,
		Cursor:       s.cursor,
		DisplayIndex: s.displayIndexLocked(),
	}
	if kind == EventStopped || kind == EventCompleted || kind == EventDegraded {
		w := s.winning
		ev.Item = &w
	}
	s.onEvent(ev)
}

func (s *Session) scheduleLocked(d time.Duration, f func()) {
	if s.invalid {
		return
	}
	s.timers = append(s.timers, s.clock.AfterFunc(d, f))
}
