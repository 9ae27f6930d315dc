package reveal

import (
	"github.com/12008yz/chibox-reveal/internal/models"
)

// Pool is the ordered, annotated item sequence one reveal session walks over.
// Full holds every item of the case; Available is Full minus excluded items,
// order preserved. A Pool is immutable once built.
type Pool struct {
	Full      []models.CaseItem
	Available []models.CaseItem

	fullIndex []int // available index -> full index
}

// BuildPool prepares the animation pool for one preview session. Exclusion
// only ever applies to the daily case: for any other case the raw IsExcluded
// flag is forced off regardless of what the server sent.
func BuildPool(items []models.CaseItem, dailyCase bool) (*Pool, error) {
	if len(items) == 0 {
		return nil, models.ErrEmptyCase
	}

	full := make([]models.CaseItem, len(items))
	copy(full, items)

	if !dailyCase {
		for i := range full {
			full[i].IsExcluded = false
		}
	}

	p := &Pool{Full: full}
	for i, item := range full {
		if item.IsExcluded {
			continue
		}
		p.Available = append(p.Available, item)
		p.fullIndex = append(p.fullIndex, i)
	}

	return p, nil
}

// FullIndex maps an available-list index to its position in the full list.
// Indices outside the available list map to -1.
func (p *Pool) FullIndex(availableIdx int) int {
	if availableIdx < 0 || availableIdx >= len(p.fullIndex) {
		return -1
	}
	return p.fullIndex[availableIdx]
}

// TargetFor returns the available-list index of the item with the given id,
// or -1 when the item is not present.
func (p *Pool) TargetFor(itemID string) int {
	for i, item := range p.Available {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}
