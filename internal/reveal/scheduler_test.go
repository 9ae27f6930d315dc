package reveal_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/12008yz/chibox-reveal/internal/models"
	"github.com/12008yz/chibox-reveal/internal/reveal"
)

func testItems(n int) []models.CaseItem {
	items := make([]models.CaseItem, n)
	for i := range items {
		items[i] = models.CaseItem{
			ID:   fmt.Sprintf("item-%02d", i),
			Name: fmt.Sprintf("Item %02d", i),
		}
	}
	return items
}

type recordedEvent struct {
	ev reveal.Event
	at time.Duration
}

type harness struct {
	clock     *fakeClock
	session   *reveal.Session
	events    []recordedEvent
	completed int
}

func newHarness(t *testing.T, items []models.CaseItem, daily bool) *harness {
	t.Helper()

	pool, err := reveal.BuildPool(items, daily)
	if err != nil {
		t.Fatalf("BuildPool: %v", err)
	}

	h := &harness{clock: &fakeClock{}}
	h.session = reveal.NewSession(pool, daily, reveal.DefaultTiming(), h.clock,
		func(ev reveal.Event) {
			h.events = append(h.events, recordedEvent{ev: ev, at: h.clock.now})
		},
		func() {
			h.completed++
		},
	)
	return h
}

func (h *harness) eventsOf(kind reveal.EventKind) []recordedEvent {
	var out []recordedEvent
	for _, rec := range h.events {
		if rec.ev.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

func (h *harness) timeOf(t *testing.T, kind reveal.EventKind) time.Duration {
	t.Helper()
	recs := h.eventsOf(kind)
	if len(recs) != 1 {
		t.Fatalf("expected exactly one %s event, got %d", kind, len(recs))
	}
	return recs[0].at
}

// Scenario: 20 available items, winner at available index 15. The session
// must take exactly 15 advancing steps, stop on the winner, and complete
// 3500ms after the stop.
func TestSessionLandsOnWinner(t *testing.T) {
	items := testItems(20)
	h := newHarness(t, items, false)

	if err := h.session.Start(items[15]); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h.clock.Advance(60 * time.Second)

	steps := h.eventsOf(reveal.EventStep)
	if len(steps) != 15 {
		t.Fatalf("expected 15 advancing steps, got %d", len(steps))
	}

	stopped := h.timeOf(t, reveal.EventStopped)
	completedAt := h.timeOf(t, reveal.EventCompleted)
	if got := completedAt - stopped; got != 3500*time.Millisecond {
		t.Errorf("completion fired %v after stop, want 3500ms", got)
	}
	if h.completed != 1 {
		t.Errorf("completion callback fired %d times, want 1", h.completed)
	}

	recs := h.eventsOf(reveal.EventStopped)
	if recs[0].ev.Item == nil || recs[0].ev.Item.ID != items[15].ID {
		t.Errorf("stopped on wrong item: %+v", recs[0].ev.Item)
	}
	if recs[0].ev.DisplayIndex != 15 {
		t.Errorf("display index = %d, want 15", recs[0].ev.DisplayIndex)
	}

	if st := h.session.State(); st.Phase != reveal.PhaseIdle || st.Cursor != 0 {
		t.Errorf("session not reset after completion: %+v", st)
	}
}

func TestSessionCursorMonotonicAndDelaysDecelerate(t *testing.T) {
	items := testItems(20)
	h := newHarness(t, items, false)

	if err := h.session.Start(items[15]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(60 * time.Second)

	steps := h.eventsOf(reveal.EventStep)
	prevCursor := 0
	for i, rec := range steps {
		if rec.ev.Cursor != prevCursor+1 {
			t.Fatalf("step %d: cursor jumped from %d to %d", i, prevCursor, rec.ev.Cursor)
		}
		prevCursor = rec.ev.Cursor
		if rec.ev.Cursor > 15 {
			t.Fatalf("cursor %d exceeded target 15", rec.ev.Cursor)
		}
	}

	// Inter-step delays: constant at 150ms outside the 7-step slowdown
	// window, then non-decreasing inside it.
	started := h.timeOf(t, reveal.EventStarted)
	if steps[0].at-started != 500*time.Millisecond {
		t.Errorf("startup delay = %v, want 500ms", steps[0].at-started)
	}

	slowdownStart := 15 - 7
	var prevDelay time.Duration
	for i := 1; i < len(steps); i++ {
		delay := steps[i].at - steps[i-1].at
		if steps[i-1].ev.Cursor <= slowdownStart {
			if delay != 150*time.Millisecond {
				t.Errorf("step %d: fast delay = %v, want 150ms", i, delay)
			}
		} else if delay < prevDelay {
			t.Errorf("step %d: delay %v shrank from %v inside slowdown window", i, delay, prevDelay)
		}
		prevDelay = delay
	}
}

func TestSessionPhaseTransitions(t *testing.T) {
	items := testItems(20)
	h := newHarness(t, items, false)

	if err := h.session.Start(items[15]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(60 * time.Second)

	for _, rec := range h.eventsOf(reveal.EventStep) {
		want := reveal.PhaseSpinning
		if rec.ev.Cursor > 15-7 {
			want = reveal.PhaseSlowing
		}
		if rec.ev.Cursor == 15 {
			continue // final step stops, phase checked via stopped event
		}
		if rec.ev.Phase != want {
			t.Errorf("cursor %d: phase = %s, want %s", rec.ev.Cursor, rec.ev.Phase, want)
		}
	}

	if recs := h.eventsOf(reveal.EventStopped); recs[0].ev.Phase != reveal.PhaseStopped {
		t.Errorf("stopped event phase = %s", recs[0].ev.Phase)
	}
}

// Scenario: daily case, winning item already dropped earlier the same day so
// its raw exclusion flag hides it from the reel. The session degrades to an
// instant landing but still plays the daily post-stop sequence: strike at
// +2000ms and completion at +5000ms.
func TestDailyCaseExcludedWinnerDegrades(t *testing.T) {
	items := testItems(20)
	items[15].IsExcluded = true
	items[15].IsAlreadyDropped = true

	h := newHarness(t, items, true)

	if err := h.session.Start(items[15]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(60 * time.Second)

	if steps := h.eventsOf(reveal.EventStep); len(steps) != 0 {
		t.Fatalf("degraded session took %d steps, want 0", len(steps))
	}
	if recs := h.eventsOf(reveal.EventDegraded); len(recs) != 1 {
		t.Fatalf("expected a degraded event")
	}

	stopped := h.timeOf(t, reveal.EventStopped)
	if stopped != 0 {
		t.Errorf("stop at %v, want immediate", stopped)
	}

	sparks := h.timeOf(t, reveal.EventSparks)
	strike := h.timeOf(t, reveal.EventStrike)
	completed := h.timeOf(t, reveal.EventCompleted)

	if sparks-stopped != 1000*time.Millisecond {
		t.Errorf("sparks at +%v, want +1000ms", sparks-stopped)
	}
	if strike-stopped != 2000*time.Millisecond {
		t.Errorf("strike at +%v, want +2000ms", strike-stopped)
	}
	if completed-stopped != 5000*time.Millisecond {
		t.Errorf("completion at +%v, want +5000ms", completed-stopped)
	}
	if h.completed != 1 {
		t.Errorf("completion callback fired %d times, want 1", h.completed)
	}
}

func TestNonDailyCaseNeverStrikes(t *testing.T) {
	items := testItems(20)
	h := newHarness(t, items, false)

	if err := h.session.Start(items[3]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(60 * time.Second)

	if recs := h.eventsOf(reveal.EventStrike); len(recs) != 0 {
		t.Errorf("strike fired on a non-daily case")
	}
}

// Scenario: winning item id absent from the loaded pool entirely. Zero steps,
// instant stop, completion still fires.
func TestMissingWinnerDegradesWithoutError(t *testing.T) {
	items := testItems(20)
	h := newHarness(t, items, false)

	if err := h.session.Start(models.CaseItem{ID: "not-loaded", Name: "Ghost"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(60 * time.Second)

	if steps := h.eventsOf(reveal.EventStep); len(steps) != 0 {
		t.Fatalf("degraded session took %d steps, want 0", len(steps))
	}
	if h.timeOf(t, reveal.EventStopped) != 0 {
		t.Errorf("stop was not immediate")
	}
	if h.completed != 1 {
		t.Errorf("completion callback fired %d times, want 1", h.completed)
	}

	recs := h.eventsOf(reveal.EventStopped)
	if recs[0].ev.Item == nil || recs[0].ev.Item.ID != "not-loaded" {
		t.Errorf("degraded stop must still show the winning item")
	}
	if recs[0].ev.DisplayIndex != -1 {
		t.Errorf("degraded display index = %d, want -1", recs[0].ev.DisplayIndex)
	}
}

func TestInvalidateCancelsPendingCallbacks(t *testing.T) {
	items := testItems(20)
	h := newHarness(t, items, false)

	if err := h.session.Start(items[15]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(1 * time.Second) // mid-spin

	h.session.Invalidate()
	before := len(h.events)

	h.clock.Advance(60 * time.Second)

	if len(h.events) != before {
		t.Errorf("events fired after invalidation: %d -> %d", before, len(h.events))
	}
	if h.completed != 0 {
		t.Errorf("completion fired on an abandoned session")
	}
	if st := h.session.State(); st.Phase != reveal.PhaseIdle {
		t.Errorf("invalidated session phase = %s, want idle", st.Phase)
	}
}

func TestSessionCannotBeStartedTwice(t *testing.T) {
	items := testItems(20)
	h := newHarness(t, items, false)

	if err := h.session.Start(items[5]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.session.Start(items[6]); err == nil {
		t.Fatal("second Start on a running session must fail")
	}
}

// Two consecutive sessions over the same pool must each terminate correctly
// with no leaked timers between them.
func TestBackToBackSessions(t *testing.T) {
	items := testItems(20)
	pool, err := reveal.BuildPool(items, false)
	if err != nil {
		t.Fatalf("BuildPool: %v", err)
	}

	clock := &fakeClock{}
	for run, target := range []int{15, 4} {
		completed := 0
		var lastStop *reveal.Event
		session := reveal.NewSession(pool, false, reveal.DefaultTiming(), clock,
			func(ev reveal.Event) {
				if ev.Kind == reveal.EventStopped {
					e := ev
					lastStop = &e
				}
			},
			func() { completed++ },
		)

		if err := session.Start(items[target]); err != nil {
			t.Fatalf("run %d: Start: %v", run, err)
		}
		clock.Advance(60 * time.Second)

		if completed != 1 {
			t.Fatalf("run %d: completion fired %d times", run, completed)
		}
		if lastStop == nil || lastStop.Item.ID != items[target].ID {
			t.Fatalf("run %d: wrong landing item", run)
		}
	}

	for _, tm := range clock.timers {
		if !tm.fired && !tm.stopped {
			t.Error("timer leaked between sessions")
		}
	}
}
