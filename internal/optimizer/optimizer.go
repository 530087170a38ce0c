package optimizer

import (
	"github.com/sei-dlp/engine/internal/types"
	"github.com/sei-dlp/engine/internal/utils"
)

// Optimize aligns a raw candidate's bounds to the pool's tick spacing, then
// tightens the width by the gas optimization factor around the unchanged
// midpoint. Execution on a fast-finality chain is cheap enough that a
// slightly tighter range earns more fees than it costs in rebalances.
// Deterministic given its inputs.
func (o *Optimizer) Optimize(candidate types.RangeCandidate, pool types.PoolState) types.RangeCandidate {
	spacing := pool.TickSpacing
	if spacing <= 0 {
		spacing = o.params.TickSpacing
	}

	candidate.LowerPrice = utils.AlignPriceToTickSpacing(candidate.LowerPrice, spacing)
	candidate.UpperPrice = utils.AlignPriceToTickSpacing(candidate.UpperPrice, spacing)

	mid := (candidate.LowerPrice + candidate.UpperPrice) / 2
	halfWidth := candidate.Width() / 2 * o.params.GasOptimizationFactor
	candidate.LowerPrice = mid - halfWidth
	candidate.UpperPrice = mid + halfWidth

	price := pool.Price()
	if price <= 0 {
		price = mid
	}
	return o.enforceRangeInvariant(candidate, price)
}
