package topology

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/HerbHall/ponplan/pkg/models"
)

// DeviceSnapshot is the port-capacity state of one OLT, MS or SUBMS as read
// from storage. TypeCode carries the device's oltType, msType or submsType.
type DeviceSnapshot struct {
	ID                 string            `json:"id" example:"ms-07"`
	Name               string            `json:"name,omitempty" example:"MS Elm Street"`
	DeviceType         models.DeviceType `json:"device_type" example:"ms"`
	TypeCode           string            `json:"type_code,omitempty" example:"1x16"`
	DeclaredTotalPorts int               `json:"declared_total_ports,omitempty" example:"0"`
	ActivePorts        int               `json:"active_ports" example:"4"`
	ParentID           string            `json:"parent_id,omitempty" example:"olt-01"`
}

// SlotInfo is a snapshot with its resolved port totals.
type SlotInfo struct {
	DeviceSnapshot
	InferredTotalPorts int  `json:"inferred_total_ports" example:"16"`
	TotalPorts         int  `json:"total_ports" example:"16"`
	AvailablePorts     int  `json:"available_ports" example:"12"`
	UnknownTypeCode    bool `json:"unknown_type_code,omitempty"`
}

// PortSummary aggregates capacity over a device set.
type PortSummary struct {
	TotalCapacity         int     `json:"total_capacity" example:"64"`
	TotalActive           int     `json:"total_active" example:"40"`
	TotalAvailable        int     `json:"total_available" example:"24"`
	UtilizationPercentage float64 `json:"utilization_percentage" example:"62.5"`
}

// PortAllocation is the answer to a port-allocation query.
type PortAllocation struct {
	Summary                   PortSummary `json:"summary"`
	DevicesWithAvailableSlots []SlotInfo  `json:"devices_with_available_slots"`
	Recommendations           []string    `json:"recommendations"`
}

// Allocator resolves device port capacity and ranks attachment points.
type Allocator struct {
	rules *Rules
}

// NewAllocator returns an Allocator over rules. A nil rules table selects
// DefaultRules.
func NewAllocator(rules *Rules) *Allocator {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Allocator{rules: rules}
}

// Slots resolves the port totals of one device. A declared port count wins
// when positive; otherwise the count is inferred from the type code, and an
// unrecognized code infers zero ports rather than failing.
func (a *Allocator) Slots(d DeviceSnapshot) (SlotInfo, error) {
	dt, err := models.ParseDeviceType(string(d.DeviceType))
	if err != nil {
		return SlotInfo{}, fmt.Errorf("%w: device %q: %v", ErrInvalidInput, d.ID, err)
	}
	d.DeviceType = dt
	if !allocatable(d.DeviceType) {
		return SlotInfo{}, fmt.Errorf("%w: device %q: type %q has no port allocation", ErrInvalidInput, d.ID, d.DeviceType)
	}
	if d.DeclaredTotalPorts < 0 || d.ActivePorts < 0 {
		return SlotInfo{}, fmt.Errorf("%w: device %q: port counts must be non-negative", ErrInvalidInput, d.ID)
	}

	info := SlotInfo{DeviceSnapshot: d, TotalPorts: d.DeclaredTotalPorts}
	if d.DeclaredTotalPorts == 0 {
		n, ok := a.rules.PortCount(d.DeviceType, d.TypeCode)
		info.InferredTotalPorts = n
		info.UnknownTypeCode = !ok
		info.TotalPorts = n
	}
	info.AvailablePorts = max(0, info.TotalPorts-d.ActivePorts)
	return info, nil
}

// CalculateAvailableSlots returns the number of free ports on d, never
// negative even when stored data reports more active than total ports.
func (a *Allocator) CalculateAvailableSlots(d DeviceSnapshot) (int, error) {
	info, err := a.Slots(d)
	if err != nil {
		return 0, err
	}
	return info.AvailablePorts, nil
}

// SlotsAll resolves every device, failing on the first malformed snapshot.
func (a *Allocator) SlotsAll(devices []DeviceSnapshot) ([]SlotInfo, error) {
	out := make([]SlotInfo, 0, len(devices))
	for i := range devices {
		info, err := a.Slots(devices[i])
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Summarize computes capacity totals over devices and lists the devices
// that still have free ports, most free ports first.
func (a *Allocator) Summarize(devices []DeviceSnapshot) (PortAllocation, error) {
	infos, err := a.SlotsAll(devices)
	if err != nil {
		return PortAllocation{}, err
	}

	alloc := PortAllocation{
		DevicesWithAvailableSlots: []SlotInfo{},
		Recommendations:           []string{},
	}
	var full, unknown int
	for i := range infos {
		alloc.Summary.TotalCapacity += infos[i].TotalPorts
		alloc.Summary.TotalActive += infos[i].ActivePorts
		alloc.Summary.TotalAvailable += infos[i].AvailablePorts
		if infos[i].AvailablePorts > 0 {
			alloc.DevicesWithAvailableSlots = append(alloc.DevicesWithAvailableSlots, infos[i])
		} else {
			full++
		}
		if infos[i].UnknownTypeCode {
			unknown++
		}
	}
	if alloc.Summary.TotalCapacity > 0 {
		pct := float64(alloc.Summary.TotalActive) / float64(alloc.Summary.TotalCapacity) * 100
		alloc.Summary.UtilizationPercentage = math.Round(pct*100) / 100
	}
	rankByAvailable(alloc.DevicesWithAvailableSlots)

	alloc.Recommendations = summaryRecommendations(alloc, full, unknown)
	return alloc, nil
}

func summaryRecommendations(alloc PortAllocation, full, unknown int) []string {
	recs := []string{}
	if alloc.Summary.TotalCapacity == 0 && len(alloc.DevicesWithAvailableSlots) == 0 && full == 0 {
		return append(recs, "No OLT, MS or SUBMS devices supplied")
	}

	switch u := alloc.Summary.UtilizationPercentage; {
	case u >= 90:
		recs = append(recs, fmt.Sprintf("Port utilization at %.1f%%; plan capacity expansion now", u))
	case u >= 75:
		recs = append(recs, fmt.Sprintf("Port utilization at %.1f%%; approaching capacity", u))
	}

	for _, dt := range []models.DeviceType{models.DeviceTypeOLT, models.DeviceTypeMS, models.DeviceTypeSUBMS} {
		for i := range alloc.DevicesWithAvailableSlots {
			d := &alloc.DevicesWithAvailableSlots[i]
			if d.DeviceType != dt {
				continue
			}
			recs = append(recs, fmt.Sprintf("Best %s for new connections: %s (%d free ports)",
				labelOf(dt), displayName(d.DeviceSnapshot), d.AvailablePorts))
			break
		}
	}

	if full > 0 {
		recs = append(recs, fmt.Sprintf("%d device(s) have no free ports", full))
	}
	if unknown > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d device(s) have unrecognized type codes; declare their port counts", unknown))
	}
	return recs
}

// rankByAvailable sorts descending by free ports; ties keep input order.
func rankByAvailable(infos []SlotInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].AvailablePorts > infos[j].AvailablePorts
	})
}

func labelOf(dt models.DeviceType) string {
	return strings.ToUpper(string(dt))
}

func displayName(d DeviceSnapshot) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
