package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/ponplan/pkg/models"
	"github.com/HerbHall/ponplan/pkg/plugin"
	"github.com/HerbHall/ponplan/pkg/roles"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin           = (*Module)(nil)
	_ plugin.HTTPProvider     = (*Module)(nil)
	_ plugin.HealthChecker    = (*Module)(nil)
	_ roles.InventoryProvider = (*Module)(nil)
)

// Errors returned by device operations.
var (
	ErrNotFound      = errors.New("device not found")
	ErrInvalidDevice = errors.New("invalid device")
	ErrInvalidParent = errors.New("invalid parent")
	ErrHasChildren   = errors.New("device has children")
	ErrNoStore       = errors.New("inventory store not configured")
)

// Module implements the PON inventory plugin.
type Module struct {
	logger *zap.Logger
	bus    plugin.EventBus
	store  *InventoryStore
}

// New creates a new inventory plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "inventory",
		Version:     "0.1.0",
		Description: "PON device hierarchy storage",
		Roles:       []string{roles.RoleInventory},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	if deps.Store != nil {
		if err := deps.Store.Migrate(ctx, "inventory", migrations()); err != nil {
			return fmt.Errorf("inventory migrations: %w", err)
		}
		m.store = NewInventoryStore(deps.Store.DB())
	}

	m.logger.Info("inventory module initialized", zap.Bool("persistent", m.store != nil))
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("inventory module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("inventory module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.store == nil {
		return plugin.HealthStatus{Status: "degraded", Message: "no database configured"}
	}
	n, err := m.store.Count(ctx)
	if err != nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: err.Error()}
	}
	return plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"devices": strconv.Itoa(n)},
	}
}

// CreateDeviceRequest is the input for CreateDevice.
type CreateDeviceRequest struct {
	Name          string `json:"name" example:"MS Elm Street"`
	DeviceType    string `json:"device_type" example:"ms"`
	TypeCode      string `json:"type_code,omitempty" example:"1x16"`
	ParentID      string `json:"parent_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	DeclaredPorts int    `json:"declared_ports,omitempty" example:"0"`
	Location      string `json:"location,omitempty" example:"Cabinet 4, Main St"`
	Notes         string `json:"notes,omitempty"`
}

// CreateDevice validates req against the hierarchy rules, stores the new
// device and announces it on the event bus.
func (m *Module) CreateDevice(ctx context.Context, req CreateDeviceRequest) (*models.PonDevice, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	dt, err := models.ParseDeviceType(req.DeviceType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	}
	if req.DeclaredPorts < 0 {
		return nil, fmt.Errorf("%w: declared_ports must be non-negative", ErrInvalidDevice)
	}
	code, err := normalizeTypeCode(dt, req.TypeCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	}
	if err := m.checkParent(ctx, dt, req.ParentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &models.PonDevice{
		ID:            uuid.New().String(),
		Name:          name,
		DeviceType:    dt,
		TypeCode:      code,
		ParentID:      req.ParentID,
		DeclaredPorts: req.DeclaredPorts,
		Location:      strings.TrimSpace(req.Location),
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.store.InsertDevice(ctx, d); err != nil {
		return nil, err
	}

	m.logger.Info("device created",
		zap.String("id", d.ID),
		zap.String("type", string(d.DeviceType)),
		zap.String("parent_id", d.ParentID),
	)
	m.publish(ctx, TopicDeviceCreated, *d)
	return d, nil
}

// DeleteDevice removes a device that has nothing attached to it.
func (m *Module) DeleteDevice(ctx context.Context, id string) error {
	if m.store == nil {
		return ErrNoStore
	}
	d, err := m.store.DeleteDevice(ctx, id)
	if err != nil {
		return err
	}
	m.logger.Info("device deleted", zap.String("id", id))
	m.publish(ctx, TopicDeviceDeleted, *d)
	return nil
}

// Device implements roles.InventoryProvider.
func (m *Module) Device(ctx context.Context, id string) (*models.PonDevice, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.GetDevice(ctx, id)
}

// Devices implements roles.InventoryProvider.
func (m *Module) Devices(ctx context.Context, types ...models.DeviceType) ([]models.PonDevice, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.ListDevices(ctx, types...)
}

// Children lists the devices attached directly to id.
func (m *Module) Children(ctx context.Context, id string) ([]models.PonDevice, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	parent, err := m.store.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.store.ListChildren(ctx, id)
}

// StageHistory implements roles.InventoryProvider. Every MS, SUBMS and X2
// between the OLT and the device (inclusive) contributes one stage; FDBs
// are passive junctions and contribute none. The subscriber count is the
// number of customers on the chain's PON port, that is under the device
// attached directly to the OLT, or under the whole OLT when the chain is
// the OLT alone.
func (m *Module) StageHistory(ctx context.Context, deviceID string) (*roles.StageHistory, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	chain, err := m.store.Ancestors(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, nil
	}

	root := chain[0]
	if root.DeviceType != models.DeviceTypeOLT {
		return nil, fmt.Errorf("device %s is not connected to an OLT (root %s is %s)", deviceID, root.ID, root.DeviceType)
	}
	pon, err := models.ParsePonType(root.TypeCode)
	if err != nil {
		return nil, fmt.Errorf("olt %s: %w", root.ID, err)
	}
	feeder := root
	if len(chain) > 1 {
		feeder = chain[1]
	}
	subscribers, err := m.store.CountCustomers(ctx, feeder.ID)
	if err != nil {
		return nil, err
	}

	h := &roles.StageHistory{
		DeviceID:        deviceID,
		OLTID:           root.ID,
		PonType:         pon,
		SubscriberCount: subscribers,
		Stages:          []roles.StageRecord{},
	}
	for _, d := range chain[1:] {
		if !d.DeviceType.Splits() {
			continue
		}
		h.Stages = append(h.Stages, roles.StageRecord{
			DeviceID:     d.ID,
			DeviceName:   d.Name,
			DeviceType:   d.DeviceType,
			SplitterType: d.TypeCode,
		})
	}
	return h, nil
}

func (m *Module) checkParent(ctx context.Context, dt models.DeviceType, parentID string) error {
	allowed := dt.AllowedParents()
	if len(allowed) == 0 {
		if parentID != "" {
			return fmt.Errorf("%w: %s devices cannot have a parent", ErrInvalidParent, dt)
		}
		return nil
	}
	if parentID == "" {
		return fmt.Errorf("%w: %s devices need a parent", ErrInvalidParent, dt)
	}
	parent, err := m.store.GetDevice(ctx, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("%w: parent %s not found", ErrInvalidParent, parentID)
	}
	if !slices.Contains(allowed, parent.DeviceType) {
		return fmt.Errorf("%w: %s cannot attach to %s", ErrInvalidParent, dt, parent.DeviceType)
	}
	return nil
}

// normalizeTypeCode validates the type code for dt: a PON type for an OLT,
// a splitter ratio for splitting devices (X2 defaults to 1x2) and nothing
// for FDBs and customers.
func normalizeTypeCode(dt models.DeviceType, code string) (string, error) {
	switch {
	case dt == models.DeviceTypeOLT:
		pon, err := models.ParsePonType(code)
		return string(pon), err
	case dt == models.DeviceTypeX2 && strings.TrimSpace(code) == "":
		return string(models.Splitter1x2), nil
	case dt.Splits():
		st, err := models.ParseSplitterType(code)
		return string(st), err
	default:
		if strings.TrimSpace(code) != "" {
			return "", fmt.Errorf("%s devices take no type code", dt)
		}
		return "", nil
	}
}

// publish announces a device change without blocking the caller. The
// handlers outlive the request, so they get a context that is never
// cancelled.
func (m *Module) publish(ctx context.Context, topic string, d models.PonDevice) {
	if m.bus == nil {
		return
	}
	m.bus.PublishAsync(context.WithoutCancel(ctx), plugin.Event{
		Topic:   topic,
		Source:  "inventory",
		Payload: d,
	})
}
