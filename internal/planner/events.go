package planner

// Event topics consumed by the planner module.
const (
	TopicDeviceCreated = "inventory.device.created"
	TopicDeviceDeleted = "inventory.device.deleted"
)

// TopicCapacityExhausted is published when a new device takes the last
// free port of its parent. The payload is a CapacityAlert.
const TopicCapacityExhausted = "planner.capacity.exhausted"

// CapacityAlert describes a parent device with no free ports left.
type CapacityAlert struct {
	DeviceID    string `json:"device_id"`
	ParentID    string `json:"parent_id"`
	ParentName  string `json:"parent_name"`
	ParentType  string `json:"parent_type"`
	TotalPorts  int    `json:"total_ports"`
	ActivePorts int    `json:"active_ports"`
}
