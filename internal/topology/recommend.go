package topology

import (
	"fmt"
	"math"

	"github.com/HerbHall/ponplan/pkg/models"
)

// Recommend plans and validates a topology for subscriberCount customers
// and returns human-readable guidance, one line per actionable fact.
func (p *Planner) Recommend(subscriberCount int, pon models.PonType) ([]string, error) {
	plan, err := p.Calculate(subscriberCount, pon)
	if err != nil {
		return nil, err
	}
	return p.RecommendFor(plan, p.Validate(plan)), nil
}

// RecommendFor renders guidance for a plan that has already been validated.
func (p *Planner) RecommendFor(plan *TopologyPlan, res ValidationResult) []string {
	recs := []string{}
	if plan == nil {
		return recs
	}

	maxLoss := p.rules.MaxLossDB()
	remaining := maxLoss - plan.TotalLossDB

	if plan.Shape == ShapeDirect {
		recs = append(recs, "Direct OLT-to-customer connection; no splitters required")
	}

	switch {
	case res.HasError(CodeLossBudgetExceeded):
		recs = append(recs, fmt.Sprintf(
			"Loss budget exceeded by %.1f dB; remove or downsize a splitter stage", -remaining))
	case remaining <= lossEpsilon:
		recs = append(recs, fmt.Sprintf(
			"Loss budget fully used (%.1f of %.1f dB); no further passive elements allowed",
			plan.TotalLossDB, maxLoss))
	case plan.Saturated:
		recs = append(recs, fmt.Sprintf(
			"%.1f dB of loss budget remaining, but a saturated tube system takes no further passive elements",
			remaining))
	default:
		if st, loss, ok := p.rules.smallestSplitter(); ok && loss > 0 {
			n := int(math.Floor(remaining/loss + lossEpsilon))
			if n > 0 {
				recs = append(recs, fmt.Sprintf(
					"%.1f dB of loss budget remaining; can add %d more %s splitter(s)", remaining, n, st))
			} else {
				recs = append(recs, fmt.Sprintf(
					"%.1f dB of loss budget remaining; not enough for another splitter", remaining))
			}
		}
	}

	headroom := plan.CapacityLimit - plan.SubscriberCount
	switch {
	case res.HasError(CodeCapacityExceeded):
		recs = append(recs, fmt.Sprintf(
			"%d subscribers exceed %s capacity of %d; move %d subscriber(s) to another PON port",
			plan.SubscriberCount, plan.PonType.Label(), plan.CapacityLimit, -headroom))
	case headroom == 0:
		recs = append(recs, fmt.Sprintf("%s port at capacity (%d/%d subscribers)",
			plan.PonType.Label(), plan.SubscriberCount, plan.CapacityLimit))
	default:
		recs = append(recs, fmt.Sprintf("Room for %d more subscriber(s) on this %s port (%d/%d)",
			headroom, plan.PonType.Label(), plan.SubscriberCount, plan.CapacityLimit))
	}

	if plan.Saturated {
		recs = append(recs, fmt.Sprintf(
			"Tube system fan-out of %d is saturated; serve additional subscribers from another OLT port",
			p.rules.TubeCapacity()))
	}
	if res.HasWarning(CodeNonStandard) {
		recs = append(recs, "Non-standard splitter arrangement; the "+
			describeStages(p.tubeStages())+" tube system is the supported layout")
	}
	if res.HasWarning(CodeUnknownSplitterType) {
		recs = append(recs, "Unknown splitter type recorded; verify the inventory record, loss may be understated")
	}
	return recs
}

func (p *Planner) tubeStages() []SplitterStage {
	pattern := p.rules.TubePattern()
	stages := make([]SplitterStage, len(pattern))
	for i, st := range pattern {
		stages[i] = SplitterStage{StageIndex: i + 1, SplitterType: st}
	}
	return stages
}
