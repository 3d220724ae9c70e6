package pricing

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-api/internal/catalog"
)

// Selector picks the single applicable price list for an evaluation
// context using priority-by-minimum-amount ordering.
type Selector struct {
	Eval   Evaluator
	Logger zerolog.Logger
}

type candidate struct {
	list      catalog.PriceList
	minAmount decimal.Decimal
	order     int
}

// Apply returns the winning price list. Candidates are the active,
// non-default lists carrying at least one active amount condition, probed
// in ascending order of their smallest minimum amount. The first candidate
// whose every active condition passes wins. As soon as one candidate
// fails, evaluation stops and the default list wins: satisfying a lower
// threshold is treated as a prerequisite for a higher one.
//
// The default list is resolved from the provided lists; callers are
// expected to have verified it exists.
func (s Selector) Apply(ec EvaluationContext, lists []catalog.PriceList) catalog.PriceList {
	var def catalog.PriceList
	candidates := make([]candidate, 0, len(lists))
	for i, pl := range lists {
		if pl.Status != catalog.StatusActive {
			continue
		}
		if pl.IsDefault {
			def = pl
			continue
		}
		minAmount, ok := MinAmount(pl)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{list: pl, minAmount: minAmount, order: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].minAmount.Equal(candidates[j].minAmount) {
			return candidates[i].order < candidates[j].order
		}
		return candidates[i].minAmount.LessThan(candidates[j].minAmount)
	})

	for _, cand := range candidates {
		if s.allConditionsMet(cand.list, ec) {
			return cand.list
		}
		s.Logger.Debug().
			Str("price_list_id", cand.list.ID.String()).
			Str("price_list", cand.list.Name).
			Str("min_amount", cand.minAmount.String()).
			Msg("price list conditions not met, falling back to default")
		break
	}
	return def
}

func (s Selector) allConditionsMet(pl catalog.PriceList, ec EvaluationContext) bool {
	for _, cond := range pl.ActiveConditions() {
		if !s.Eval.Evaluate(cond, ec) {
			return false
		}
	}
	return true
}
