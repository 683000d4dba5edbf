package inventory

// Event topics published by the inventory module. The payload of both is
// the affected models.PonDevice.
const (
	TopicDeviceCreated = "inventory.device.created"
	TopicDeviceDeleted = "inventory.device.deleted"
)
