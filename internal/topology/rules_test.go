package topology

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/HerbHall/ponplan/pkg/models"
)

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()

	if r.MaxLossDB() != 20 {
		t.Errorf("MaxLossDB = %v, want 20", r.MaxLossDB())
	}
	for _, st := range models.SplitterTypes {
		if _, ok := r.InsertionLoss(st); !ok {
			t.Errorf("missing insertion loss for %s", st)
		}
	}
	capacities := map[models.PonType]int{
		models.PonTypeEPON:   64,
		models.PonTypeGPON:   128,
		models.PonTypeXGPON:  256,
		models.PonTypeXGSPON: 256,
	}
	for pt, want := range capacities {
		if got, _ := r.Capacity(pt); got != want {
			t.Errorf("Capacity(%s) = %d, want %d", pt, got, want)
		}
	}
	if r.DirectMaxSubscribers() != 11 {
		t.Errorf("DirectMaxSubscribers = %d, want 11", r.DirectMaxSubscribers())
	}
	if r.TubeCapacity() != 64 {
		t.Errorf("TubeCapacity = %d, want 64", r.TubeCapacity())
	}
}

func TestRules_LossIncreasesWithFanOut(t *testing.T) {
	r := DefaultRules()
	prev := -1.0
	for _, st := range models.SplitterTypes {
		loss, _ := r.InsertionLoss(st)
		if loss <= prev {
			t.Errorf("loss(%s) = %v, not greater than previous %v", st, loss, prev)
		}
		prev = loss
	}
}

func TestRules_PortCount(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		dt     models.DeviceType
		code   string
		want   int
		wantOK bool
	}{
		{models.DeviceTypeOLT, "gpon", 16, true},
		{models.DeviceTypeOLT, "EPON", 8, true},
		{models.DeviceTypeOLT, "XGS-PON", 16, true},
		{models.DeviceTypeMS, "1x16", 16, true},
		{models.DeviceTypeMS, "1x32", 32, true},
		{models.DeviceTypeMS, "1x4", 0, false},
		{models.DeviceTypeSUBMS, "1x4", 4, true},
		{models.DeviceTypeSUBMS, " 1X8 ", 8, true},
		{models.DeviceTypeSUBMS, "", 0, false},
		{models.DeviceTypeFDB, "1x4", 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.dt)+"/"+tt.code, func(t *testing.T) {
			got, ok := r.PortCount(tt.dt, tt.code)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("PortCount(%s, %q) = %d, %v; want %d, %v", tt.dt, tt.code, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRules_TubePatternIsCopy(t *testing.T) {
	r := DefaultRules()
	p := r.TubePattern()
	p[0] = models.Splitter1x64

	if got := r.TubePattern()[0]; got != models.Splitter1x16 {
		t.Errorf("TubePattern()[0] = %s after caller mutation, want 1x16", got)
	}
}

func TestRules_SnapshotIsDeepCopy(t *testing.T) {
	r := DefaultRules()
	s := r.Snapshot()
	s.SplitterLossDB["1x16"] = 99
	s.PortCounts["ms"]["1x16"] = 99

	if loss, _ := r.InsertionLoss(models.Splitter1x16); loss != 13 {
		t.Errorf("InsertionLoss(1x16) = %v after snapshot mutation", loss)
	}
	if n, _ := r.PortCount(models.DeviceTypeMS, "1x16"); n != 16 {
		t.Errorf("PortCount(ms, 1x16) = %d after snapshot mutation", n)
	}
}

func TestParseRules_Overrides(t *testing.T) {
	doc := []byte(`
max_passive_loss_db: 24
splitter_loss_db:
  1x16: 13.5
pon_capacity:
  gpon: 64
port_counts:
  ms:
    1x64: 64
direct_max_subscribers: 4
`)
	r, err := ParseRules(doc)
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}

	if r.MaxLossDB() != 24 {
		t.Errorf("MaxLossDB = %v, want 24", r.MaxLossDB())
	}
	if loss, _ := r.InsertionLoss(models.Splitter1x16); loss != 13.5 {
		t.Errorf("InsertionLoss(1x16) = %v, want 13.5", loss)
	}
	if loss, _ := r.InsertionLoss(models.Splitter1x4); loss != 7 {
		t.Errorf("InsertionLoss(1x4) = %v, want default 7", loss)
	}
	if c, _ := r.Capacity(models.PonTypeGPON); c != 64 {
		t.Errorf("Capacity(gpon) = %d, want 64", c)
	}
	if c, _ := r.Capacity(models.PonTypeEPON); c != 64 {
		t.Errorf("Capacity(epon) = %d, want default 64", c)
	}
	if n, ok := r.PortCount(models.DeviceTypeMS, "1x64"); !ok || n != 64 {
		t.Errorf("PortCount(ms, 1x64) = %d, %v; want 64, true", n, ok)
	}
	if n, _ := r.PortCount(models.DeviceTypeMS, "1x16"); n != 16 {
		t.Errorf("PortCount(ms, 1x16) = %d, want default 16", n)
	}
	if r.DirectMaxSubscribers() != 4 {
		t.Errorf("DirectMaxSubscribers = %d, want 4", r.DirectMaxSubscribers())
	}

	plan, err := NewPlanner(r).Calculate(5, models.PonTypeGPON)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if plan.Shape != ShapeTubeSystem {
		t.Errorf("Shape = %q with direct max 4, want tube system", plan.Shape)
	}
}

func TestParseRules_ExplicitZero(t *testing.T) {
	r, err := ParseRules([]byte("direct_max_subscribers: 0\n"))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if r.DirectMaxSubscribers() != 0 {
		t.Fatalf("DirectMaxSubscribers = %d, want 0", r.DirectMaxSubscribers())
	}
	plan, err := NewPlanner(r).Calculate(1, models.PonTypeGPON)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if plan.Shape != ShapeTubeSystem {
		t.Errorf("Shape = %q with no direct tier, want tube system", plan.Shape)
	}
}

func TestParseRules_EmptyDocument(t *testing.T) {
	r, err := ParseRules(nil)
	if err != nil {
		t.Fatalf("ParseRules(empty): %v", err)
	}
	if r.MaxLossDB() != 20 || r.DirectMaxSubscribers() != 11 || r.TubeCapacity() != 64 {
		t.Errorf("empty document changed defaults: max %v, direct %d, tube %d",
			r.MaxLossDB(), r.DirectMaxSubscribers(), r.TubeCapacity())
	}
}

func TestParseRules_DoesNotMutateDefaults(t *testing.T) {
	if _, err := ParseRules([]byte("splitter_loss_db:\n  1x2: 3.0\n")); err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if loss, _ := DefaultRules().InsertionLoss(models.Splitter1x2); loss != 4 {
		t.Errorf("default 1x2 loss = %v, want 4", loss)
	}
	if loss := DefaultSnapshot().SplitterLossDB["1x2"]; loss != 4 {
		t.Errorf("DefaultSnapshot 1x2 loss = %v, want 4", loss)
	}
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed yaml", doc: "max_passive_loss_db: [1, 2"},
		{name: "negative loss", doc: "splitter_loss_db:\n  1x4: -1\n"},
		{name: "unknown splitter", doc: "splitter_loss_db:\n  1x3: 5\n"},
		{name: "unknown pon type", doc: "pon_capacity:\n  bpon: 32\n"},
		{name: "negative capacity", doc: "pon_capacity:\n  gpon: -1\n"},
		{name: "ports on fdb", doc: "port_counts:\n  fdb:\n    1x4: 4\n"},
		{name: "tube system over budget", doc: "max_passive_loss_db: 15\n"},
		{name: "tube stage unknown", doc: "tube_system: [\"1x16\", \"1x5\"]\n"},
		{name: "tube capacity below direct max", doc: "direct_max_subscribers: 80\n"},
		{name: "misspelled top-level key", doc: "max_passive_los_db: 25\n"},
		{name: "misspelled map key", doc: "pon_capacty:\n  gpon: 64\n"},
		{name: "empty tube system", doc: "tube_system: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.doc))
			if !errors.Is(err, ErrInvalidRules) {
				t.Errorf("err = %v, want ErrInvalidRules", err)
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("tube_system_capacity: 48\n"), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	r, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if r.TubeCapacity() != 48 {
		t.Errorf("TubeCapacity = %d, want 48", r.TubeCapacity())
	}

	if _, err := LoadRules(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadRules on a missing file should fail")
	}
}
