// Package planner exposes the topology engine as a plugin: planning,
// validation of planned and stored splitter chains, port allocation and
// attachment recommendations.
package planner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/ponplan/internal/topology"
	"github.com/HerbHall/ponplan/pkg/models"
	"github.com/HerbHall/ponplan/pkg/plugin"
	"github.com/HerbHall/ponplan/pkg/roles"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.HTTPProvider    = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ plugin.Validator       = (*Module)(nil)
)

// Module implements the topology planner plugin.
type Module struct {
	logger  *zap.Logger
	cfg     PlannerConfig
	rules   *topology.Rules
	planner *topology.Planner
	alloc   *topology.Allocator

	// inv is the stored device tree; nil when no inventory plugin runs.
	inv roles.InventoryProvider
	bus plugin.EventBus
}

// New creates a new planner plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "planner",
		Version:      "0.1.0",
		Description:  "PON splitter topology planning and port allocation",
		Dependencies: []string{"inventory"},
		Required:     true,
		Roles:        []string{roles.RolePlanning},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("planner config: %w", err)
		}
	}

	rules, err := m.cfg.LoadRules()
	if err != nil {
		return err
	}
	m.setRules(rules)

	if deps.Plugins != nil {
		for _, p := range deps.Plugins.ResolveByRole(roles.RoleInventory) {
			if inv, ok := p.(roles.InventoryProvider); ok {
				m.inv = inv
				break
			}
		}
	}

	m.logger.Info("planner module initialized",
		zap.String("rules_file", m.cfg.RulesFile),
		zap.Float64("max_loss_db", rules.MaxLossDB()),
		zap.Int("direct_max_subscribers", rules.DirectMaxSubscribers()),
		zap.Int("tube_capacity", rules.TubeCapacity()),
		zap.Bool("inventory", m.inv != nil),
	)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("planner module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("planner module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if m.rules == nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "rules not loaded"}
	}
	source := "built-in"
	if m.cfg.RulesFile != "" {
		source = m.cfg.RulesFile
	}
	status := plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"rules": source, "inventory": "connected"},
	}
	if m.inv == nil {
		status.Status = "degraded"
		status.Message = "no inventory; stored-device queries are unavailable"
		status.Details["inventory"] = "none"
	}
	return status
}

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: TopicDeviceCreated, Handler: m.onDeviceCreated},
		{Topic: TopicDeviceDeleted, Handler: m.onDeviceDeleted},
	}
}

func (m *Module) setRules(rules *topology.Rules) {
	m.rules = rules
	m.planner = topology.NewPlanner(rules)
	m.alloc = topology.NewAllocator(rules)
}

// onDeviceCreated warns when the new device took the last free port of
// its parent, or attached to a parent that was already full.
func (m *Module) onDeviceCreated(ctx context.Context, ev plugin.Event) {
	d, ok := ev.Payload.(models.PonDevice)
	if !ok || d.ParentID == "" || m.inv == nil {
		return
	}
	parent, err := m.inv.Device(ctx, d.ParentID)
	if err != nil {
		m.logger.Warn("capacity check failed", zap.String("parent_id", d.ParentID), zap.Error(err))
		return
	}
	if parent == nil {
		return
	}
	info, err := m.alloc.Slots(snapshotOf(*parent))
	if err != nil {
		// FDBs and X2s have no tracked port count.
		if !errors.Is(err, topology.ErrInvalidInput) {
			m.logger.Warn("capacity check failed", zap.String("parent_id", parent.ID), zap.Error(err))
		}
		return
	}
	if info.UnknownTypeCode || info.AvailablePorts > 0 {
		return
	}

	capacityWarningsTotal.Inc()
	m.logger.Warn("parent device has no free ports",
		zap.String("device_id", d.ID),
		zap.String("parent_id", parent.ID),
		zap.String("parent_name", parent.Name),
		zap.Int("total_ports", info.TotalPorts),
		zap.Int("active_ports", info.ActivePorts),
	)
	if m.bus != nil {
		_ = m.bus.Publish(ctx, plugin.Event{
			Topic:  TopicCapacityExhausted,
			Source: "planner",
			Payload: CapacityAlert{
				DeviceID:    d.ID,
				ParentID:    parent.ID,
				ParentName:  parent.Name,
				ParentType:  string(parent.DeviceType),
				TotalPorts:  info.TotalPorts,
				ActivePorts: info.ActivePorts,
			},
		})
	}
}

func (m *Module) onDeviceDeleted(_ context.Context, ev plugin.Event) {
	if d, ok := ev.Payload.(models.PonDevice); ok {
		m.logger.Debug("device removed", zap.String("device_id", d.ID), zap.String("parent_id", d.ParentID))
	}
}

func snapshotOf(d models.PonDevice) topology.DeviceSnapshot {
	return topology.DeviceSnapshot{
		ID:                 d.ID,
		Name:               d.Name,
		DeviceType:         d.DeviceType,
		TypeCode:           d.TypeCode,
		DeclaredTotalPorts: d.DeclaredPorts,
		ActivePorts:        d.ActivePorts,
		ParentID:           d.ParentID,
	}
}
