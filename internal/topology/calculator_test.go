package topology

import (
	"errors"
	"testing"

	"github.com/HerbHall/ponplan/pkg/models"
)

func TestCalculate_DirectTopology(t *testing.T) {
	p := NewPlanner(nil)

	plan, err := p.Calculate(8, models.PonTypeGPON)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(plan.Stages) != 0 {
		t.Errorf("len(Stages) = %d, want 0", len(plan.Stages))
	}
	if plan.TotalLossDB != 0 {
		t.Errorf("TotalLossDB = %v, want 0", plan.TotalLossDB)
	}
	if plan.Shape != ShapeDirect {
		t.Errorf("Shape = %q, want %q", plan.Shape, ShapeDirect)
	}
	if plan.Stages == nil {
		t.Error("Stages should be an empty slice, not nil")
	}
}

func TestCalculate_TubeSystem(t *testing.T) {
	p := NewPlanner(nil)

	plan, err := p.Calculate(24, models.PonTypeGPON)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(plan.Stages) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(plan.Stages))
	}
	if plan.Stages[0].SplitterType != models.Splitter1x16 || plan.Stages[1].SplitterType != models.Splitter1x4 {
		t.Errorf("stages = %s, %s; want 1x16, 1x4", plan.Stages[0].SplitterType, plan.Stages[1].SplitterType)
	}

	l16, _ := p.Rules().InsertionLoss(models.Splitter1x16)
	l4, _ := p.Rules().InsertionLoss(models.Splitter1x4)
	if plan.TotalLossDB != l16+l4 {
		t.Errorf("TotalLossDB = %v, want %v", plan.TotalLossDB, l16+l4)
	}
	if plan.Stages[0].CumulativeLossDB != l16 {
		t.Errorf("stage 1 cumulative = %v, want %v", plan.Stages[0].CumulativeLossDB, l16)
	}
	if plan.Stages[0].StageIndex != 1 || plan.Stages[1].StageIndex != 2 {
		t.Errorf("stage indexes = %d, %d; want 1, 2", plan.Stages[0].StageIndex, plan.Stages[1].StageIndex)
	}
	if plan.Stages[0].Role != models.DeviceTypeMS || plan.Stages[1].Role != models.DeviceTypeSUBMS {
		t.Errorf("roles = %s, %s; want ms, subms", plan.Stages[0].Role, plan.Stages[1].Role)
	}
	if plan.Saturated {
		t.Error("24 subscribers should not saturate the tube system")
	}

	res := p.Validate(plan)
	if !res.IsValid {
		t.Errorf("IsValid = false, errors = %v", res.Errors)
	}
}

func TestCalculate_TierBoundaries(t *testing.T) {
	p := NewPlanner(nil)
	tests := []struct {
		name       string
		count      int
		wantShape  Shape
		wantStages int
		saturated  bool
	}{
		{name: "one subscriber", count: 1, wantShape: ShapeDirect, wantStages: 0},
		{name: "direct max", count: 11, wantShape: ShapeDirect, wantStages: 0},
		{name: "first tube count", count: 12, wantShape: ShapeTubeSystem, wantStages: 2},
		{name: "tube capacity", count: 64, wantShape: ShapeTubeSystem, wantStages: 2},
		{name: "past tube capacity", count: 65, wantShape: ShapeTubeSystem, wantStages: 2, saturated: true},
		{name: "past pon capacity", count: 500, wantShape: ShapeTubeSystem, wantStages: 2, saturated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := p.Calculate(tt.count, models.PonTypeGPON)
			if err != nil {
				t.Fatalf("Calculate(%d): %v", tt.count, err)
			}
			if plan.Shape != tt.wantShape {
				t.Errorf("Shape = %q, want %q", plan.Shape, tt.wantShape)
			}
			if len(plan.Stages) != tt.wantStages {
				t.Errorf("len(Stages) = %d, want %d", len(plan.Stages), tt.wantStages)
			}
			if plan.Saturated != tt.saturated {
				t.Errorf("Saturated = %v, want %v", plan.Saturated, tt.saturated)
			}
		})
	}
}

func TestCalculate_SaturatedAtMaxLoss(t *testing.T) {
	p := NewPlanner(nil)
	plan, err := p.Calculate(100, models.PonTypeGPON)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if plan.TotalLossDB != p.Rules().MaxLossDB() {
		t.Errorf("TotalLossDB = %v, want max %v", plan.TotalLossDB, p.Rules().MaxLossDB())
	}
	res := p.Validate(plan)
	if !res.HasWarning(CodeCapacitySaturated) {
		t.Errorf("expected %s warning, got %v", CodeCapacitySaturated, res.Warnings)
	}
	if !res.IsValid {
		t.Errorf("100 subscribers fit GPON capacity; errors = %v", res.Errors)
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	p := NewPlanner(nil)
	tests := []struct {
		name  string
		count int
		pon   models.PonType
	}{
		{name: "zero subscribers", count: 0, pon: models.PonTypeGPON},
		{name: "negative subscribers", count: -5, pon: models.PonTypeGPON},
		{name: "unknown pon type", count: 10, pon: models.PonType("bpon")},
		{name: "empty pon type", count: 10, pon: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := p.Calculate(tt.count, tt.pon)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			if plan != nil {
				t.Error("expected nil plan on invalid input")
			}
		})
	}
}

func TestCalculate_Monotonic(t *testing.T) {
	p := NewPlanner(nil)
	for _, pon := range models.PonTypes {
		limit, _ := p.Rules().Capacity(pon)
		prev := -1.0
		for n := 1; n <= limit+10; n++ {
			plan, err := p.Calculate(n, pon)
			if err != nil {
				t.Fatalf("Calculate(%d, %s): %v", n, pon, err)
			}
			if plan.TotalLossDB < prev {
				t.Fatalf("%s: loss dropped from %v to %v at %d subscribers", pon, prev, plan.TotalLossDB, n)
			}
			prev = plan.TotalLossDB
		}
	}
}

func TestCalculate_LossBudgetInvariant(t *testing.T) {
	p := NewPlanner(nil)
	for _, pon := range models.PonTypes {
		limit, _ := p.Rules().Capacity(pon)
		for n := 1; n <= limit; n++ {
			plan, err := p.Calculate(n, pon)
			if err != nil {
				t.Fatalf("Calculate(%d, %s): %v", n, pon, err)
			}
			if plan.TotalLossDB > p.Rules().MaxLossDB() {
				t.Fatalf("%s/%d: loss %v exceeds %v", pon, n, plan.TotalLossDB, p.Rules().MaxLossDB())
			}
			if res := p.Validate(plan); res.HasError(CodeLossBudgetExceeded) {
				t.Fatalf("%s/%d: unexpected loss budget error", pon, n)
			}
		}
	}
}

func TestCalculate_EPONCapacityCeiling(t *testing.T) {
	p := NewPlanner(nil)

	atLimit, err := p.Calculate(64, models.PonTypeEPON)
	if err != nil {
		t.Fatalf("Calculate(64): %v", err)
	}
	if res := p.Validate(atLimit); res.HasError(CodeCapacityExceeded) {
		t.Errorf("64 EPON subscribers should not exceed capacity: %v", res.Errors)
	}

	over, err := p.Calculate(65, models.PonTypeEPON)
	if err != nil {
		t.Fatalf("Calculate(65): %v", err)
	}
	res := p.Validate(over)
	if !res.HasError(CodeCapacityExceeded) {
		t.Errorf("65 EPON subscribers should exceed capacity, errors = %v", res.Errors)
	}
	if res.IsValid {
		t.Error("IsValid = true for a plan over capacity")
	}
}

func TestBuildPlan(t *testing.T) {
	p := NewPlanner(nil)
	tests := []struct {
		name      string
		specs     []StageSpec
		wantShape Shape
		wantLoss  float64
	}{
		{name: "no stages", specs: nil, wantShape: ShapeDirect, wantLoss: 0},
		{
			name:      "single stage",
			specs:     []StageSpec{{DeviceType: "ms", SplitterType: "1x32"}},
			wantShape: ShapeSingleStage,
			wantLoss:  16,
		},
		{
			name:      "tube system",
			specs:     []StageSpec{{DeviceType: "ms", SplitterType: "1x16"}, {DeviceType: "subms", SplitterType: "1X4"}},
			wantShape: ShapeTubeSystem,
			wantLoss:  20,
		},
		{
			name: "three stages",
			specs: []StageSpec{
				{DeviceType: "ms", SplitterType: "1x8"},
				{DeviceType: "subms", SplitterType: "1x4"},
				{DeviceType: "x2", SplitterType: "1x2"},
			},
			wantShape: ShapeNonStandard,
			wantLoss:  21,
		},
		{
			name:      "unknown splitter counts as zero",
			specs:     []StageSpec{{SplitterType: "1x16"}, {SplitterType: "1x3"}},
			wantShape: ShapeNonStandard,
			wantLoss:  13,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := p.BuildPlan(30, models.PonTypeGPON, tt.specs)
			if err != nil {
				t.Fatalf("BuildPlan: %v", err)
			}
			if plan.Shape != tt.wantShape {
				t.Errorf("Shape = %q, want %q", plan.Shape, tt.wantShape)
			}
			if plan.TotalLossDB != tt.wantLoss {
				t.Errorf("TotalLossDB = %v, want %v", plan.TotalLossDB, tt.wantLoss)
			}
		})
	}
}

func TestBuildPlan_RejectsNonSplittingDevice(t *testing.T) {
	p := NewPlanner(nil)
	_, err := p.BuildPlan(10, models.PonTypeGPON, []StageSpec{{DeviceType: "customer", SplitterType: "1x4"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	_, err = p.BuildPlan(10, models.PonTypeGPON, []StageSpec{{DeviceType: "router", SplitterType: "1x4"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestBuildPlan_PositionalRoles(t *testing.T) {
	p := NewPlanner(nil)
	plan, err := p.BuildPlan(10, models.PonTypeGPON, []StageSpec{
		{SplitterType: "1x4"}, {SplitterType: "1x2"}, {SplitterType: "1x2"},
	})
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	want := []models.DeviceType{models.DeviceTypeMS, models.DeviceTypeSUBMS, models.DeviceTypeX2}
	for i, st := range plan.Stages {
		if st.Role != want[i] {
			t.Errorf("stage %d role = %s, want %s", i+1, st.Role, want[i])
		}
	}
}
