package models

import (
	"fmt"
	"strings"
	"time"
)

// PonType is the PON technology served by an OLT port.
type PonType string

const (
	PonTypeEPON   PonType = "epon"
	PonTypeGPON   PonType = "gpon"
	PonTypeXGPON  PonType = "xgpon"
	PonTypeXGSPON PonType = "xgspon"
)

// PonTypes lists every known PON type in display order.
var PonTypes = []PonType{PonTypeEPON, PonTypeGPON, PonTypeXGPON, PonTypeXGSPON}

// ParsePonType normalizes s and returns the matching PonType.
// "xgs-pon" and "xg-pon" spellings are accepted.
func ParsePonType(s string) (PonType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "")
	for _, p := range PonTypes {
		if string(p) == norm {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown pon type %q", s)
}

// Label returns the upper-case form used in human-readable output.
func (p PonType) Label() string {
	switch p {
	case PonTypeXGPON:
		return "XG-PON"
	case PonTypeXGSPON:
		return "XGS-PON"
	default:
		return strings.ToUpper(string(p))
	}
}

// SplitterType is a passive optical splitter ratio.
type SplitterType string

const (
	Splitter1x2  SplitterType = "1x2"
	Splitter1x4  SplitterType = "1x4"
	Splitter1x8  SplitterType = "1x8"
	Splitter1x16 SplitterType = "1x16"
	Splitter1x32 SplitterType = "1x32"
	Splitter1x64 SplitterType = "1x64"
)

// SplitterTypes lists every known splitter ratio, smallest fan-out first.
var SplitterTypes = []SplitterType{
	Splitter1x2, Splitter1x4, Splitter1x8, Splitter1x16, Splitter1x32, Splitter1x64,
}

// ParseSplitterType normalizes s ("1X16", " 1x16 ") and returns the
// matching SplitterType.
func ParseSplitterType(s string) (SplitterType, error) {
	norm := SplitterType(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range SplitterTypes {
		if st == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown splitter type %q", s)
}

// DeviceType is a level in the PON hierarchy.
type DeviceType string

const (
	DeviceTypeOLT      DeviceType = "olt"
	DeviceTypeMS       DeviceType = "ms"
	DeviceTypeSUBMS    DeviceType = "subms"
	DeviceTypeFDB      DeviceType = "fdb"
	DeviceTypeX2       DeviceType = "x2"
	DeviceTypeCustomer DeviceType = "customer"
)

// DeviceTypes lists the hierarchy levels from the head-end outward.
var DeviceTypes = []DeviceType{
	DeviceTypeOLT, DeviceTypeMS, DeviceTypeSUBMS, DeviceTypeFDB, DeviceTypeX2, DeviceTypeCustomer,
}

// ParseDeviceType returns the DeviceType matching s.
func ParseDeviceType(s string) (DeviceType, error) {
	norm := DeviceType(strings.ToLower(strings.TrimSpace(s)))
	for _, dt := range DeviceTypes {
		if dt == norm {
			return dt, nil
		}
	}
	return "", fmt.Errorf("unknown device type %q", s)
}

// Splits reports whether devices of this type host a splitter stage.
// FDBs are passive junctions and customers are endpoints.
func (d DeviceType) Splits() bool {
	switch d {
	case DeviceTypeMS, DeviceTypeSUBMS, DeviceTypeX2:
		return true
	default:
		return false
	}
}

// AllowedParents returns the device types a device of type d may hang off.
// An OLT is a root and has none.
func (d DeviceType) AllowedParents() []DeviceType {
	switch d {
	case DeviceTypeMS:
		return []DeviceType{DeviceTypeOLT}
	case DeviceTypeSUBMS, DeviceTypeFDB:
		return []DeviceType{DeviceTypeMS}
	case DeviceTypeX2:
		return []DeviceType{DeviceTypeSUBMS, DeviceTypeFDB}
	case DeviceTypeCustomer:
		return []DeviceType{DeviceTypeX2, DeviceTypeFDB, DeviceTypeSUBMS}
	default:
		return nil
	}
}

// PonDevice is one stored node of the fiber tree.
type PonDevice struct {
	ID            string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name          string     `json:"name" example:"OLT-North-01"`
	DeviceType    DeviceType `json:"device_type" example:"olt"`
	TypeCode      string     `json:"type_code,omitempty" example:"gpon"` // oltType / msType / submsType
	ParentID      string     `json:"parent_id,omitempty"`
	DeclaredPorts int        `json:"declared_ports,omitempty" example:"16"`
	Location      string     `json:"location,omitempty" example:"Cabinet 4, Main St"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at" example:"2026-01-10T08:00:00Z"`
	UpdatedAt     time.Time  `json:"updated_at" example:"2026-01-15T10:30:00Z"`

	// ActivePorts is derived from the number of direct children.
	ActivePorts int `json:"active_ports"`
}
