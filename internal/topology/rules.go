// Package topology implements the PON planning engine: the rules table,
// the splitter topology calculator and validator, recommendation and
// diagram rendering, and port/slot allocation across the device hierarchy.
//
// Every operation is a pure function of its arguments and an immutable
// *Rules value, so a single Planner or Allocator may be shared by any
// number of goroutines.
package topology

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/HerbHall/ponplan/pkg/models"
	"gopkg.in/yaml.v3"
)

// ErrInvalidInput is wrapped by every error caused by malformed caller
// input: non-positive subscriber counts, unknown PON or device types,
// negative port counts.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidRules is returned when a rules table fails validation.
var ErrInvalidRules = errors.New("invalid rules")

// lossEpsilon absorbs float rounding when comparing against the loss ceiling.
const lossEpsilon = 1e-9

// Rules is the immutable planning rules table. Construct it with
// DefaultRules, NewRules or LoadRules; it cannot be modified afterwards.
type Rules struct {
	maxLossDB    float64
	splitterLoss map[models.SplitterType]float64
	ponCapacity  map[models.PonType]int
	ports        map[models.DeviceType]map[string]int
	tubePattern  []models.SplitterType
	directMax    int
	tubeCapacity int
}

// RulesSnapshot is the serializable form of a Rules table. It is returned
// by the rules query endpoint and is the on-disk format of a rules file.
type RulesSnapshot struct {
	MaxPassiveLossDB     float64                   `json:"max_passive_loss_db" yaml:"max_passive_loss_db"`
	SplitterLossDB       map[string]float64        `json:"splitter_loss_db" yaml:"splitter_loss_db"`
	PonCapacity          map[string]int            `json:"pon_capacity" yaml:"pon_capacity"`
	PortCounts           map[string]map[string]int `json:"port_counts" yaml:"port_counts"`
	TubeSystem           []string                  `json:"tube_system" yaml:"tube_system"`
	DirectMaxSubscribers int                       `json:"direct_max_subscribers" yaml:"direct_max_subscribers"`
	TubeSystemCapacity   int                       `json:"tube_system_capacity" yaml:"tube_system_capacity"`
}

// DefaultSnapshot returns the built-in rules values.
func DefaultSnapshot() RulesSnapshot {
	return RulesSnapshot{
		MaxPassiveLossDB: 20,
		SplitterLossDB: map[string]float64{
			"1x2":  4.0,
			"1x4":  7.0,
			"1x8":  10.0,
			"1x16": 13.0,
			"1x32": 16.0,
			"1x64": 19.0,
		},
		PonCapacity: map[string]int{
			"epon":   64,
			"gpon":   128,
			"xgpon":  256,
			"xgspon": 256,
		},
		PortCounts: map[string]map[string]int{
			"olt":   {"epon": 8, "gpon": 16, "xgpon": 16, "xgspon": 16},
			"ms":    {"1x8": 8, "1x16": 16, "1x32": 32},
			"subms": {"1x4": 4, "1x8": 8, "1x16": 16},
		},
		TubeSystem:           []string{"1x16", "1x4"},
		DirectMaxSubscribers: 11,
		TubeSystemCapacity:   64,
	}
}

var defaultRules = mustRules(DefaultSnapshot())

func mustRules(s RulesSnapshot) *Rules {
	r, err := NewRules(s)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRules returns the shared built-in rules table.
func DefaultRules() *Rules {
	return defaultRules
}

// NewRules validates s and builds an immutable Rules table from it.
func NewRules(s RulesSnapshot) (*Rules, error) {
	if s.MaxPassiveLossDB <= 0 {
		return nil, fmt.Errorf("%w: max passive loss must be positive, got %v", ErrInvalidRules, s.MaxPassiveLossDB)
	}

	r := &Rules{
		maxLossDB:    s.MaxPassiveLossDB,
		splitterLoss: make(map[models.SplitterType]float64, len(s.SplitterLossDB)),
		ponCapacity:  make(map[models.PonType]int, len(s.PonCapacity)),
		ports:        make(map[models.DeviceType]map[string]int, len(s.PortCounts)),
		directMax:    s.DirectMaxSubscribers,
		tubeCapacity: s.TubeSystemCapacity,
	}

	for name, loss := range s.SplitterLossDB {
		st, err := models.ParseSplitterType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
		}
		if loss < 0 || math.IsNaN(loss) {
			return nil, fmt.Errorf("%w: insertion loss for %s must be non-negative", ErrInvalidRules, st)
		}
		r.splitterLoss[st] = loss
	}

	for name, capacity := range s.PonCapacity {
		pt, err := models.ParsePonType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
		}
		if capacity <= 0 {
			return nil, fmt.Errorf("%w: capacity for %s must be positive", ErrInvalidRules, pt)
		}
		r.ponCapacity[pt] = capacity
	}
	for _, pt := range models.PonTypes {
		if _, ok := r.ponCapacity[pt]; !ok {
			return nil, fmt.Errorf("%w: missing capacity for %s", ErrInvalidRules, pt)
		}
	}

	for name, codes := range s.PortCounts {
		dt, err := models.ParseDeviceType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
		}
		if !allocatable(dt) {
			return nil, fmt.Errorf("%w: port counts are not tracked for %s devices", ErrInvalidRules, dt)
		}
		table := make(map[string]int, len(codes))
		for code, n := range codes {
			if n < 0 {
				return nil, fmt.Errorf("%w: port count for %s %s must be non-negative", ErrInvalidRules, dt, code)
			}
			table[normalizeCode(dt, code)] = n
		}
		r.ports[dt] = table
	}

	if len(s.TubeSystem) == 0 {
		return nil, fmt.Errorf("%w: tube system pattern is empty", ErrInvalidRules)
	}
	var tubeLoss float64
	for _, name := range s.TubeSystem {
		st, err := models.ParseSplitterType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: tube system: %v", ErrInvalidRules, err)
		}
		loss, ok := r.splitterLoss[st]
		if !ok {
			return nil, fmt.Errorf("%w: tube system stage %s has no insertion loss", ErrInvalidRules, st)
		}
		tubeLoss += loss
		r.tubePattern = append(r.tubePattern, st)
	}
	if tubeLoss > r.maxLossDB+lossEpsilon {
		return nil, fmt.Errorf("%w: tube system loss %.2f dB exceeds max passive loss %.2f dB",
			ErrInvalidRules, tubeLoss, r.maxLossDB)
	}

	if r.directMax < 0 {
		return nil, fmt.Errorf("%w: direct max subscribers must be non-negative", ErrInvalidRules)
	}
	if r.tubeCapacity <= r.directMax {
		return nil, fmt.Errorf("%w: tube system capacity %d must exceed direct max %d",
			ErrInvalidRules, r.tubeCapacity, r.directMax)
	}

	return r, nil
}

// LoadRules reads a YAML rules file and overlays it on the built-in
// defaults. Keys absent from the file keep their default value; map
// entries are merged per key.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules is LoadRules for an in-memory YAML document. Unknown keys are
// rejected so a misspelled override cannot fall back to a default.
func ParseRules(data []byte) (*Rules, error) {
	var over rulesOverride
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&over); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse rules: %v", ErrInvalidRules, err)
	}
	return NewRules(over.apply(DefaultSnapshot()))
}

// rulesOverride is the rules file layout. Scalars are pointers so an
// explicit zero is told apart from an absent key.
type rulesOverride struct {
	MaxPassiveLossDB     *float64                  `yaml:"max_passive_loss_db"`
	SplitterLossDB       map[string]float64        `yaml:"splitter_loss_db"`
	PonCapacity          map[string]int            `yaml:"pon_capacity"`
	PortCounts           map[string]map[string]int `yaml:"port_counts"`
	TubeSystem           []string                  `yaml:"tube_system"`
	DirectMaxSubscribers *int                      `yaml:"direct_max_subscribers"`
	TubeSystemCapacity   *int                      `yaml:"tube_system_capacity"`
}

func (o rulesOverride) apply(base RulesSnapshot) RulesSnapshot {
	if o.MaxPassiveLossDB != nil {
		base.MaxPassiveLossDB = *o.MaxPassiveLossDB
	}
	for k, v := range o.SplitterLossDB {
		base.SplitterLossDB[k] = v
	}
	for k, v := range o.PonCapacity {
		base.PonCapacity[k] = v
	}
	for dt, codes := range o.PortCounts {
		if base.PortCounts[dt] == nil {
			base.PortCounts[dt] = make(map[string]int, len(codes))
		}
		for code, n := range codes {
			base.PortCounts[dt][code] = n
		}
	}
	if o.TubeSystem != nil {
		base.TubeSystem = o.TubeSystem
	}
	if o.DirectMaxSubscribers != nil {
		base.DirectMaxSubscribers = *o.DirectMaxSubscribers
	}
	if o.TubeSystemCapacity != nil {
		base.TubeSystemCapacity = *o.TubeSystemCapacity
	}
	return base
}

// MaxLossDB returns the maximum cumulative passive loss of a valid topology.
func (r *Rules) MaxLossDB() float64 { return r.maxLossDB }

// InsertionLoss returns the insertion loss of a splitter type.
func (r *Rules) InsertionLoss(st models.SplitterType) (float64, bool) {
	loss, ok := r.splitterLoss[st]
	return loss, ok
}

// Capacity returns the ONU ceiling of one port of the given PON type.
func (r *Rules) Capacity(pt models.PonType) (int, bool) {
	c, ok := r.ponCapacity[pt]
	return c, ok
}

// PortCount returns the physical port count implied by a device's type code
// (oltType, msType or submsType).
func (r *Rules) PortCount(dt models.DeviceType, code string) (int, bool) {
	n, ok := r.ports[dt][normalizeCode(dt, code)]
	return n, ok
}

// TubePattern returns a copy of the tube-system splitter sequence.
func (r *Rules) TubePattern() []models.SplitterType {
	out := make([]models.SplitterType, len(r.tubePattern))
	copy(out, r.tubePattern)
	return out
}

// DirectMaxSubscribers is the largest subscriber count served without splitters.
func (r *Rules) DirectMaxSubscribers() int { return r.directMax }

// TubeCapacity is the largest subscriber count the tube system fans out to.
func (r *Rules) TubeCapacity() int { return r.tubeCapacity }

// smallestSplitter returns the known splitter with the lowest insertion loss.
func (r *Rules) smallestSplitter() (models.SplitterType, float64, bool) {
	var (
		best  models.SplitterType
		loss  float64
		found bool
	)
	for _, st := range models.SplitterTypes {
		l, ok := r.splitterLoss[st]
		if !ok {
			continue
		}
		if !found || l < loss {
			best, loss, found = st, l, true
		}
	}
	return best, loss, found
}

// Snapshot returns a deep copy of the table in its serializable form.
func (r *Rules) Snapshot() RulesSnapshot {
	s := RulesSnapshot{
		MaxPassiveLossDB:     r.maxLossDB,
		SplitterLossDB:       make(map[string]float64, len(r.splitterLoss)),
		PonCapacity:          make(map[string]int, len(r.ponCapacity)),
		PortCounts:           make(map[string]map[string]int, len(r.ports)),
		DirectMaxSubscribers: r.directMax,
		TubeSystemCapacity:   r.tubeCapacity,
	}
	for st, loss := range r.splitterLoss {
		s.SplitterLossDB[string(st)] = loss
	}
	for pt, c := range r.ponCapacity {
		s.PonCapacity[string(pt)] = c
	}
	for dt, codes := range r.ports {
		table := make(map[string]int, len(codes))
		for code, n := range codes {
			table[code] = n
		}
		s.PortCounts[string(dt)] = table
	}
	for _, st := range r.tubePattern {
		s.TubeSystem = append(s.TubeSystem, string(st))
	}
	return s
}

// allocatable reports whether the port allocator tracks devices of type dt.
func allocatable(dt models.DeviceType) bool {
	switch dt {
	case models.DeviceTypeOLT, models.DeviceTypeMS, models.DeviceTypeSUBMS:
		return true
	default:
		return false
	}
}

// normalizeCode folds case and whitespace; OLT codes also drop hyphens so
// "XGS-PON" and "xgspon" resolve to the same entry.
func normalizeCode(dt models.DeviceType, code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if dt == models.DeviceTypeOLT {
		c = strings.ReplaceAll(c, "-", "")
	}
	return c
}
