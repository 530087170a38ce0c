package optimizer

import (
	"fmt"
	"math"

	"github.com/sei-dlp/engine/internal/types"
	"github.com/sei-dlp/engine/internal/utils"
)

// EvaluateRebalance decides whether an existing tick range should be
// rebalanced around the current tick, based on capital utilization. Low
// utilization means the position is earning on too little of its capital, so
// the range is narrowed and recentered; healthy utilization holds.
func (o *Optimizer) EvaluateRebalance(currentTick, lowerTick, upperTick int, utilization float64) (types.RebalancePlan, error) {
	if upperTick <= lowerTick {
		return types.RebalancePlan{}, fmt.Errorf("%w: upper tick %d must exceed lower tick %d",
			ErrInvalidInput, upperTick, lowerTick)
	}
	if utilization < 0 || utilization > 1 || math.IsNaN(utilization) {
		return types.RebalancePlan{}, fmt.Errorf("%w: utilization rate %v outside [0,1]",
			ErrInvalidInput, utilization)
	}

	plan := types.RebalancePlan{
		NewLowerTick:       lowerTick,
		NewUpperTick:       upperTick,
		GasCostEstimateUSD: o.params.GasCostEstimateUSD,
	}

	var rangeFactor float64
	switch {
	case utilization < o.params.HighUrgencyUtilization:
		plan.Action = types.RebalanceRequired
		plan.Urgency = "high"
		plan.ExpectedImprovement = (o.params.OptimalUtilization - utilization) * 100
		plan.RiskAssessment = "High opportunity cost - immediate rebalancing recommended"
		rangeFactor = o.params.HighUrgencyRangeFactor
	case utilization < o.params.MediumUrgencyUtilization:
		plan.Action = types.RebalanceSuggested
		plan.Urgency = "medium"
		plan.ExpectedImprovement = (o.params.OptimalUtilization - utilization) * 60
		plan.RiskAssessment = "Moderate inefficiency - rebalancing beneficial"
		rangeFactor = o.params.MediumUrgencyRangeFactor
	default:
		plan.Action = types.HoldPosition
		plan.Urgency = "low"
		plan.RiskAssessment = "Position optimal - no immediate action required"
		return plan, nil
	}

	spacing := o.params.TickSpacing
	width := upperTick - lowerTick

	// Round the narrowed width to a whole number of spacing steps, never
	// below one step.
	newWidth := int(math.Round(float64(width)*rangeFactor/float64(spacing))) * spacing
	if newWidth < spacing {
		newWidth = spacing
	}

	plan.NewLowerTick = utils.FloorTickToSpacing(currentTick-newWidth/2, spacing)
	plan.NewUpperTick = plan.NewLowerTick + newWidth
	return plan, nil
}
