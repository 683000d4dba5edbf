// Package roles defines typed contracts for plugin roles. A plugin that
// declares a role in PluginInfo.Roles implements the matching interface;
// callers find it with PluginResolver.ResolveByRole and a type assertion.
package roles

import (
	"context"

	"github.com/HerbHall/ponplan/pkg/models"
)

// Role names as used in PluginInfo.Roles.
const (
	RoleInventory = "inventory"
	RolePlanning  = "planning"
)

// InventoryProvider is implemented by plugins that store the PON device
// hierarchy.
type InventoryProvider interface {
	// Device returns one device with its ActivePorts filled in, or
	// (nil, nil) when no device has that ID.
	Device(ctx context.Context, id string) (*models.PonDevice, error)

	// Devices lists the stored devices of the given types, all types when
	// none are given.
	Devices(ctx context.Context, types ...models.DeviceType) ([]models.PonDevice, error)

	// StageHistory walks from a device up to its OLT and returns the
	// splitter chain in signal order, or (nil, nil) for an unknown device.
	StageHistory(ctx context.Context, deviceID string) (*StageHistory, error)
}

// StageRecord is one splitting device on the path from an OLT.
type StageRecord struct {
	DeviceID     string            `json:"device_id"`
	DeviceName   string            `json:"device_name,omitempty"`
	DeviceType   models.DeviceType `json:"device_type"`
	SplitterType string            `json:"splitter_type"`
}

// StageHistory is the splitter chain that feeds one device.
type StageHistory struct {
	DeviceID        string         `json:"device_id"`
	OLTID           string         `json:"olt_id"`
	PonType         models.PonType `json:"pon_type"`
	SubscriberCount int            `json:"subscriber_count"`
	Stages          []StageRecord  `json:"stages"`
}
