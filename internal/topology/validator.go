package topology

import (
	"fmt"
	"strings"
)

// IssueCode identifies a validation finding.
type IssueCode string

const (
	CodeLossBudgetExceeded  IssueCode = "LOSS_BUDGET_EXCEEDED"
	CodeAtMaxLoss           IssueCode = "AT_MAX_LOSS"
	CodeCapacityExceeded    IssueCode = "CAPACITY_EXCEEDED"
	CodeNonStandard         IssueCode = "NON_STANDARD_TOPOLOGY"
	CodeUnknownSplitterType IssueCode = "UNKNOWN_SPLITTER_TYPE"
	CodeCapacitySaturated   IssueCode = "CAPACITY_SATURATED"
	CodeInvalidPlan         IssueCode = "INVALID_PLAN"
)

// Issue is one validation error or warning.
type Issue struct {
	Code    IssueCode `json:"code" example:"CAPACITY_EXCEEDED"`
	Message string    `json:"message" example:"130 subscribers exceed GPON capacity of 128"`
}

// ValidationResult is the outcome of validating a plan. Errors make the
// plan invalid; warnings do not.
type ValidationResult struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// HasError reports whether the result carries an error with the given code.
func (v ValidationResult) HasError(code IssueCode) bool {
	return hasCode(v.Errors, code)
}

// HasWarning reports whether the result carries a warning with the given code.
func (v ValidationResult) HasWarning(code IssueCode) bool {
	return hasCode(v.Warnings, code)
}

func hasCode(issues []Issue, code IssueCode) bool {
	for _, is := range issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

// Validate checks a plan against the loss budget and PON capacity and
// reports any departure from the known topology shapes. The shape is
// recomputed from the stages rather than trusted from the plan. The plan
// is not modified.
func (p *Planner) Validate(plan *TopologyPlan) ValidationResult {
	res := ValidationResult{Errors: []Issue{}, Warnings: []Issue{}}
	if plan == nil {
		res.Errors = append(res.Errors, Issue{Code: CodeInvalidPlan, Message: "no topology supplied"})
		return res
	}

	maxLoss := p.rules.MaxLossDB()
	switch {
	case plan.TotalLossDB > maxLoss+lossEpsilon:
		res.Errors = append(res.Errors, Issue{
			Code:    CodeLossBudgetExceeded,
			Message: fmt.Sprintf("total loss %.1f dB exceeds the %.1f dB budget", plan.TotalLossDB, maxLoss),
		})
	case plan.TotalLossDB >= maxLoss-lossEpsilon:
		res.Warnings = append(res.Warnings, Issue{
			Code:    CodeAtMaxLoss,
			Message: fmt.Sprintf("total loss at maximum (%.1f dB), no further elements allowed", maxLoss),
		})
	}

	limit := plan.CapacityLimit
	if limit <= 0 {
		limit, _ = p.rules.Capacity(plan.PonType)
	}
	if plan.SubscriberCount > limit {
		res.Errors = append(res.Errors, Issue{
			Code: CodeCapacityExceeded,
			Message: fmt.Sprintf("%d subscribers exceed %s capacity of %d",
				plan.SubscriberCount, plan.PonType.Label(), limit),
		})
	}

	if p.classify(plan.Stages) == ShapeNonStandard {
		res.Warnings = append(res.Warnings, Issue{
			Code:    CodeNonStandard,
			Message: "non-standard topology: " + describeStages(plan.Stages),
		})
	}

	var unknown []string
	for _, st := range plan.Stages {
		if _, ok := p.rules.InsertionLoss(st.SplitterType); !ok {
			unknown = append(unknown, fmt.Sprintf("stage %d (%q)", st.StageIndex, st.SplitterType))
		}
	}
	if len(unknown) > 0 {
		res.Warnings = append(res.Warnings, Issue{
			Code:    CodeUnknownSplitterType,
			Message: "unknown splitter type on " + strings.Join(unknown, ", ") + "; counted as 0 dB",
		})
	}

	if plan.Saturated {
		res.Warnings = append(res.Warnings, Issue{
			Code: CodeCapacitySaturated,
			Message: fmt.Sprintf("%d subscribers exceed the tube system fan-out of %d",
				plan.SubscriberCount, p.rules.TubeCapacity()),
		})
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

func describeStages(stages []SplitterStage) string {
	parts := make([]string, len(stages))
	for i, st := range stages {
		parts[i] = string(st.SplitterType)
	}
	return strings.Join(parts, " -> ")
}
