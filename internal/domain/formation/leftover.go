package formation

import (
	"github.com/okian/squadron/internal/domain/model"
)

// Leftovers lists, in record order, every record that has a score and was
// not placed by the run. This covers eligible candidates no group took and
// scored candidates that lacked tags.
func Leftovers(records []model.Candidate, placed Allocation) []model.Leftover {
	out := make([]model.Leftover, 0)
	for _, c := range records {
		if c.HasScore && !placed.Has(c.Key) {
			out = append(out, model.Leftover{ID: c.ID, Score: c.Score})
		}
	}
	return out
}
