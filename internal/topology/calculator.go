package topology

import (
	"fmt"

	"github.com/HerbHall/ponplan/pkg/models"
)

// Shape classifies the splitter arrangement of a plan.
type Shape string

const (
	ShapeDirect      Shape = "direct"
	ShapeSingleStage Shape = "single-stage"
	ShapeTubeSystem  Shape = "tube-system"
	ShapeNonStandard Shape = "non-standard"
)

// SplitterStage is one passive splitting step, numbered from the OLT outward.
type SplitterStage struct {
	StageIndex       int                 `json:"stage_index" example:"1"`
	Role             models.DeviceType   `json:"role" example:"ms"`
	SplitterType     models.SplitterType `json:"splitter_type" example:"1x16"`
	InsertionLossDB  float64             `json:"insertion_loss_db" example:"13"`
	CumulativeLossDB float64             `json:"cumulative_loss_db" example:"13"`
}

// TopologyPlan is the result of planning one subscriber-count/PON-type pair,
// or the reconstruction of an existing splitter chain.
type TopologyPlan struct {
	SubscriberCount int             `json:"subscriber_count" example:"24"`
	PonType         models.PonType  `json:"pon_type" example:"gpon"`
	Shape           Shape           `json:"shape" example:"tube-system"`
	Stages          []SplitterStage `json:"stages"`
	TotalLossDB     float64         `json:"total_loss_db" example:"20"`
	CapacityLimit   int             `json:"capacity_limit" example:"128"`

	// Saturated is set when the subscriber count is beyond what the tube
	// system fans out to; no further passive stage fits the loss budget.
	Saturated bool `json:"saturated"`
}

// StageSpec describes one stage of an existing chain: the hosting device
// type and the splitter type recorded for it.
type StageSpec struct {
	DeviceType   string `json:"device_type,omitempty" example:"ms"`
	SplitterType string `json:"splitter_type" example:"1x16"`
}

// Planner computes, validates and explains splitter topologies.
type Planner struct {
	rules *Rules
}

// NewPlanner returns a Planner over rules. A nil rules table selects
// DefaultRules.
func NewPlanner(rules *Rules) *Planner {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Planner{rules: rules}
}

// Rules returns the table the planner was built with.
func (p *Planner) Rules() *Rules { return p.rules }

// Calculate selects the splitter topology for subscriberCount customers on
// a port of the given PON type.
//
// Counts up to the direct threshold get no splitters. Anything larger gets
// the tube system. Counts beyond the tube fan-out still get the tube system
// with Saturated set, and counts beyond the PON capacity are left for
// Validate to flag. A count sitting exactly on a threshold takes the
// smaller topology.
func (p *Planner) Calculate(subscriberCount int, pon models.PonType) (*TopologyPlan, error) {
	plan, err := p.newPlan(subscriberCount, pon)
	if err != nil {
		return nil, err
	}

	if subscriberCount <= p.rules.DirectMaxSubscribers() {
		plan.Shape = ShapeDirect
		return plan, nil
	}

	for i, st := range p.rules.TubePattern() {
		loss, _ := p.rules.InsertionLoss(st)
		plan.Stages = appendStage(plan.Stages, stageRole(i), st, loss)
	}
	plan.TotalLossDB = lastCumulative(plan.Stages)
	plan.Shape = ShapeTubeSystem
	plan.Saturated = subscriberCount > p.rules.TubeCapacity()
	return plan, nil
}

// BuildPlan reconstructs a plan from an explicit stage list, typically the
// splitter history of a stored device. Splitter types missing from the
// rules are kept with zero insertion loss so Validate can flag them.
func (p *Planner) BuildPlan(subscriberCount int, pon models.PonType, specs []StageSpec) (*TopologyPlan, error) {
	plan, err := p.newPlan(subscriberCount, pon)
	if err != nil {
		return nil, err
	}

	for i, spec := range specs {
		role := stageRole(i)
		if spec.DeviceType != "" {
			dt, err := models.ParseDeviceType(spec.DeviceType)
			if err != nil {
				return nil, fmt.Errorf("%w: stage %d: %v", ErrInvalidInput, i+1, err)
			}
			if !dt.Splits() {
				return nil, fmt.Errorf("%w: stage %d: %s devices do not host a splitter", ErrInvalidInput, i+1, dt)
			}
			role = dt
		}

		st, err := models.ParseSplitterType(spec.SplitterType)
		if err != nil {
			st = models.SplitterType(spec.SplitterType)
		}
		loss, _ := p.rules.InsertionLoss(st)
		plan.Stages = appendStage(plan.Stages, role, st, loss)
	}

	plan.TotalLossDB = lastCumulative(plan.Stages)
	plan.Shape = p.classify(plan.Stages)
	plan.Saturated = plan.Shape == ShapeTubeSystem && subscriberCount > p.rules.TubeCapacity()
	return plan, nil
}

func (p *Planner) newPlan(subscriberCount int, pon models.PonType) (*TopologyPlan, error) {
	if subscriberCount <= 0 {
		return nil, fmt.Errorf("%w: subscriber count must be positive, got %d", ErrInvalidInput, subscriberCount)
	}
	capacity, ok := p.rules.Capacity(pon)
	if !ok {
		return nil, fmt.Errorf("%w: unknown pon type %q", ErrInvalidInput, pon)
	}
	return &TopologyPlan{
		SubscriberCount: subscriberCount,
		PonType:         pon,
		Stages:          []SplitterStage{},
		CapacityLimit:   capacity,
	}, nil
}

// classify names the arrangement of stages.
func (p *Planner) classify(stages []SplitterStage) Shape {
	switch len(stages) {
	case 0:
		return ShapeDirect
	case 1:
		return ShapeSingleStage
	}

	pattern := p.rules.TubePattern()
	if len(stages) != len(pattern) {
		return ShapeNonStandard
	}
	for i := range stages {
		if stages[i].SplitterType != pattern[i] {
			return ShapeNonStandard
		}
	}
	return ShapeTubeSystem
}

func appendStage(stages []SplitterStage, role models.DeviceType, st models.SplitterType, loss float64) []SplitterStage {
	return append(stages, SplitterStage{
		StageIndex:       len(stages) + 1,
		Role:             role,
		SplitterType:     st,
		InsertionLossDB:  loss,
		CumulativeLossDB: lastCumulative(stages) + loss,
	})
}

func lastCumulative(stages []SplitterStage) float64 {
	if len(stages) == 0 {
		return 0
	}
	return stages[len(stages)-1].CumulativeLossDB
}

// stageRole is the device role that hosts the i-th (0-based) planned stage.
func stageRole(i int) models.DeviceType {
	switch i {
	case 0:
		return models.DeviceTypeMS
	case 1:
		return models.DeviceTypeSUBMS
	default:
		return models.DeviceTypeX2
	}
}
