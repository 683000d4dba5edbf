package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/ponplan/pkg/models"
)

// NewPonDevice returns an OLT with sensible defaults, suitable for test
// fixtures. Override individual fields with the With* options.
func NewPonDevice(opts ...func(*models.PonDevice)) models.PonDevice {
	now := time.Now().UTC().Truncate(time.Second)
	d := models.PonDevice{
		ID:         uuid.New().String(),
		Name:       "test-olt",
		DeviceType: models.DeviceTypeOLT,
		TypeCode:   string(models.PonTypeGPON),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithName sets the device name.
func WithName(name string) func(*models.PonDevice) {
	return func(d *models.PonDevice) { d.Name = name }
}

// WithID replaces the generated ID.
func WithID(id string) func(*models.PonDevice) {
	return func(d *models.PonDevice) { d.ID = id }
}

// WithType sets the device type and its type code (oltType, msType or
// submsType; empty for FDB and customer devices).
func WithType(dt models.DeviceType, code string) func(*models.PonDevice) {
	return func(d *models.PonDevice) {
		d.DeviceType = dt
		d.TypeCode = code
	}
}

// WithParent attaches the device under parentID.
func WithParent(parentID string) func(*models.PonDevice) {
	return func(d *models.PonDevice) { d.ParentID = parentID }
}

// WithDeclaredPorts sets an explicit port count.
func WithDeclaredPorts(n int) func(*models.PonDevice) {
	return func(d *models.PonDevice) { d.DeclaredPorts = n }
}

// WithLocation sets the free-text location.
func WithLocation(loc string) func(*models.PonDevice) {
	return func(d *models.PonDevice) { d.Location = loc }
}
