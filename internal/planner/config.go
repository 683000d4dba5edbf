package planner

import (
	"fmt"

	"github.com/HerbHall/ponplan/internal/topology"
)

// PlannerConfig holds the planner plugin settings under plugins.planner.
// Zero values keep the built-in rules.
type PlannerConfig struct {
	RulesFile            string `mapstructure:"rules_file"`
	DirectMaxSubscribers int    `mapstructure:"direct_max_subscribers"`
	TubeCapacity         int    `mapstructure:"tube_capacity"`
}

func DefaultConfig() PlannerConfig {
	return PlannerConfig{}
}

// Validate rejects settings that can never produce a rules table.
func (c PlannerConfig) Validate() error {
	if c.DirectMaxSubscribers < 0 {
		return fmt.Errorf("direct_max_subscribers must be non-negative, got %d", c.DirectMaxSubscribers)
	}
	if c.TubeCapacity < 0 {
		return fmt.Errorf("tube_capacity must be non-negative, got %d", c.TubeCapacity)
	}
	return nil
}

// LoadRules builds the rules table: the built-in defaults, overlaid by the
// rules file when one is set, then by the threshold overrides.
func (c PlannerConfig) LoadRules() (*topology.Rules, error) {
	rules := topology.DefaultRules()
	if c.RulesFile != "" {
		var err error
		if rules, err = topology.LoadRules(c.RulesFile); err != nil {
			return nil, err
		}
	}
	if c.DirectMaxSubscribers <= 0 && c.TubeCapacity <= 0 {
		return rules, nil
	}

	s := rules.Snapshot()
	if c.DirectMaxSubscribers > 0 {
		s.DirectMaxSubscribers = c.DirectMaxSubscribers
	}
	if c.TubeCapacity > 0 {
		s.TubeSystemCapacity = c.TubeCapacity
	}
	return topology.NewRules(s)
}
