package reveal

import "github.com/12008yz/chibox-reveal/internal/models"

// ItemView is the render state of one full-list slot. It is a pure function
// of the session state and the pool mapping; nothing here owns timers or I/O.
type ItemView struct {
	Item models.CaseItem `json:"item"`

	IsHighlighted     bool `json:"is_highlighted"`
	IsWinner          bool `json:"is_winner"`
	IsDimmedExcluded  bool `json:"is_dimmed_excluded"`
	ShowSparks        bool `json:"show_sparks"`
	ShowStrikeThrough bool `json:"show_strike_through"`
}

// RenderItems maps a session snapshot onto per-item render flags for the
// full item list.
func RenderItems(pool *Pool, st State) []ItemView {
	views := make([]ItemView, len(pool.Full))
	stopped := st.Phase == PhaseStopped

	for i, item := range pool.Full {
		v := ItemView{
			Item:             item,
			IsDimmedExcluded: item.IsExcluded,
		}
		if i == st.DisplayIndex {
			if stopped {
				v.IsWinner = true
				v.ShowSparks = st.Sparks
				v.ShowStrikeThrough = st.Strike
			} else if st.Phase == PhaseSpinning || st.Phase == PhaseSlowing {
				v.IsHighlighted = true
			}
		}
		views[i] = v
	}

	return views
}
