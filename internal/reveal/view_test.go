package reveal_test

import (
	"testing"
	"time"

	"github.com/12008yz/chibox-reveal/internal/reveal"
)

func TestRenderItemsHighlightsCursorWhileSpinning(t *testing.T) {
	items := testItems(6)
	pool, err := reveal.BuildPool(items, false)
	if err != nil {
		t.Fatalf("BuildPool: %v", err)
	}

	clock := &fakeClock{}
	session := reveal.NewSession(pool, false, reveal.DefaultTiming(), clock, nil, nil)
	if err := session.Start(items[4]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clock.Advance(700 * time.Millisecond) // startup + one step

	views := reveal.RenderItems(pool, session.State())
	if len(views) != 6 {
		t.Fatalf("views = %d, want 6", len(views))
	}
	for i, v := range views {
		if v.IsHighlighted != (i == 1) {
			t.Errorf("item %d: highlighted = %v", i, v.IsHighlighted)
		}
		if v.IsWinner || v.ShowSparks || v.ShowStrikeThrough {
			t.Errorf("item %d: premature winner/decoration flags", i)
		}
	}
}

func TestRenderItemsWinnerAndDecorations(t *testing.T) {
	items := testItems(6)
	items[2].IsExcluded = true

	pool, err := reveal.BuildPool(items, true)
	if err != nil {
		t.Fatalf("BuildPool: %v", err)
	}

	clock := &fakeClock{}
	session := reveal.NewSession(pool, true, reveal.DefaultTiming(), clock, nil, nil)
	if err := session.Start(items[5]); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Run to the stop, then into the strike-through window.
	clock.Advance(3 * time.Second)
	st := session.State()
	if st.Phase != reveal.PhaseStopped {
		t.Fatalf("phase = %s, want stopped", st.Phase)
	}
	clock.Advance(2 * time.Second)

	views := reveal.RenderItems(pool, session.State())
	for i, v := range views {
		if v.IsDimmedExcluded != (i == 2) {
			t.Errorf("item %d: dimmed = %v", i, v.IsDimmedExcluded)
		}
		isWinner := i == 5
		if v.IsWinner != isWinner {
			t.Errorf("item %d: winner = %v", i, v.IsWinner)
		}
		if v.ShowSparks != isWinner || v.ShowStrikeThrough != isWinner {
			t.Errorf("item %d: sparks=%v strike=%v", i, v.ShowSparks, v.ShowStrikeThrough)
		}
		if v.IsHighlighted {
			t.Errorf("item %d: highlighted after stop", i)
		}
	}
}
