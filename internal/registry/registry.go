// Package registry manages the lifecycle of ponplan plugins: registration,
// dependency ordering, initialization, event wiring, start and shutdown.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/HerbHall/ponplan/pkg/plugin"
	"go.uber.org/zap"
)

var _ plugin.PluginResolver = (*Registry)(nil)

// Registry holds every registered plugin. Optional plugins that fail any
// lifecycle step are disabled, along with everything that depends on them;
// a failing required plugin aborts the step with an error.
type Registry struct {
	mu       sync.RWMutex
	plugins  map[string]plugin.Plugin
	infos    map[string]plugin.PluginInfo
	order    []string
	disabled map[string]bool
	unsubs   []func()
	logger   *zap.Logger
}

// New returns an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		plugins:  make(map[string]plugin.Plugin),
		infos:    make(map[string]plugin.PluginInfo),
		disabled: make(map[string]bool),
		logger:   logger,
	}
}

// Register adds p. Names must be unique and non-empty.
func (r *Registry) Register(p plugin.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("plugin has empty name")
	}
	if _, dup := r.plugins[info.Name]; dup {
		return fmt.Errorf("plugin %q already registered", info.Name)
	}
	r.plugins[info.Name] = p
	r.infos[info.Name] = info
	r.logger.Info("plugin registered",
		zap.String("name", info.Name),
		zap.String("version", info.Version),
		zap.Int("api_version", info.APIVersion),
	)
	return nil
}

// Validate checks API versions and dependencies and computes the start
// order. It must run before InitAll.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.sortedNames() {
		if err := checkAPIVersion(name, r.infos[name].APIVersion); err != nil {
			if err := r.disable(name, "incompatible plugin API version", err); err != nil {
				return err
			}
		}
	}

	// Repeat until stable so a disabled plugin takes its dependents with it.
	for changed := true; changed; {
		changed = false
		for _, name := range r.sortedNames() {
			if r.disabled[name] {
				continue
			}
			for _, dep := range r.infos[name].Dependencies {
				var reason error
				switch _, ok := r.plugins[dep]; {
				case !ok:
					reason = fmt.Errorf("plugin %q depends on %q which is not registered", name, dep)
				case r.disabled[dep]:
					reason = fmt.Errorf("plugin %q depends on %q which is disabled", name, dep)
				}
				if reason == nil {
					continue
				}
				if err := r.disable(name, "unmet dependency", reason); err != nil {
					return err
				}
				changed = true
				break
			}
		}
	}

	order, err := r.topologicalSort()
	if err != nil {
		return err
	}
	r.order = order
	r.logger.Info("plugin dependency resolution complete",
		zap.Strings("start_order", order),
		zap.Int("disabled", len(r.disabled)),
	)
	return nil
}

// InitAll initializes the active plugins in dependency order, runs their
// config validation, and subscribes their event handlers on bus. bus may
// be nil when no plugin subscribes to events. No lock is held while a
// plugin runs, so Init may resolve other plugins through the registry.
func (r *Registry) InitAll(ctx context.Context, bus plugin.Subscriber, depsFn func(name string) plugin.Dependencies) error {
	for _, name := range r.activeSnapshot() {
		p := r.plugins[name]
		if dep, down := r.disabledDependency(name); down {
			if err := r.fail(name, "dependency failed", fmt.Errorf("%q is disabled", dep)); err != nil {
				return err
			}
			continue
		}
		r.logger.Info("initializing plugin", zap.String("name", name))

		if err := p.Init(ctx, depsFn(name)); err != nil {
			if err := r.fail(name, "init failed", err); err != nil {
				return err
			}
			continue
		}
		if v, ok := p.(plugin.Validator); ok {
			if err := v.ValidateConfig(); err != nil {
				if err := r.fail(name, "config validation failed", err); err != nil {
					return err
				}
				continue
			}
		}
		if es, ok := p.(plugin.EventSubscriber); ok && bus != nil {
			for _, sub := range es.Subscriptions() {
				unsub := bus.Subscribe(sub.Topic, sub.Handler)
				r.mu.Lock()
				r.unsubs = append(r.unsubs, unsub)
				r.mu.Unlock()
				r.logger.Debug("event subscription wired",
					zap.String("plugin", name),
					zap.String("topic", sub.Topic),
				)
			}
		}
	}
	return nil
}

// StartAll starts the initialized plugins in dependency order.
func (r *Registry) StartAll(ctx context.Context) error {
	for _, name := range r.activeSnapshot() {
		r.logger.Info("starting plugin", zap.String("name", name))
		if err := r.plugins[name].Start(ctx); err != nil {
			if err := r.fail(name, "start failed", err); err != nil {
				return err
			}
		}
	}
	return nil
}

// StopAll drops event subscriptions and stops the active plugins in
// reverse dependency order. Stop errors are logged, not returned.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.mu.Unlock()
	for _, u := range unsubs {
		u()
	}

	names := r.activeSnapshot()
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		r.logger.Info("stopping plugin", zap.String("name", name))
		if err := r.plugins[name].Stop(ctx); err != nil {
			r.logger.Error("failed to stop plugin", zap.String("name", name), zap.Error(err))
		}
	}
}

// Get returns an active plugin by name.
func (r *Registry) Get(name string) (plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	if !ok || r.disabled[name] {
		return nil, false
	}
	return p, true
}

// Resolve implements plugin.PluginResolver.
func (r *Registry) Resolve(name string) (plugin.Plugin, bool) {
	return r.Get(name)
}

// ResolveByRole returns the active plugins declaring role, in start order.
func (r *Registry) ResolveByRole(role string) []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []plugin.Plugin
	for _, name := range r.active() {
		if slices.Contains(r.infos[name].Roles, role) {
			out = append(out, r.plugins[name])
		}
	}
	return out
}

// All returns the active plugins in start order.
func (r *Registry) All() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.active()
	out := make([]plugin.Plugin, 0, len(names))
	for _, name := range names {
		out = append(out, r.plugins[name])
	}
	return out
}

// AllRoutes returns the routes of every active HTTPProvider keyed by
// plugin name.
func (r *Registry) AllRoutes() map[string][]plugin.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]plugin.Route)
	for _, name := range r.active() {
		if hp, ok := r.plugins[name].(plugin.HTTPProvider); ok {
			if rs := hp.Routes(); len(rs) > 0 {
				routes[name] = rs
			}
		}
	}
	return routes
}

// HealthAll collects the health of every active HealthChecker. Plugins
// without a health check report healthy.
func (r *Registry) HealthAll(ctx context.Context) map[string]plugin.HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]plugin.HealthStatus, len(r.order))
	for _, name := range r.active() {
		if hc, ok := r.plugins[name].(plugin.HealthChecker); ok {
			out[name] = hc.Health(ctx)
			continue
		}
		out[name] = plugin.HealthStatus{Status: "healthy"}
	}
	return out
}

// IsDisabled reports whether name was disabled during the lifecycle.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabled[name]
}

// fail is disable for callers that do not hold r.mu.
func (r *Registry) fail(name, why string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disable(name, why, cause)
}

func (r *Registry) disabledDependency(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, dep := range r.infos[name].Dependencies {
		if r.disabled[dep] {
			return dep, true
		}
	}
	return "", false
}

// activeSnapshot copies the active start order under the read lock.
func (r *Registry) activeSnapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active()
}

// disable marks an optional plugin disabled and returns nil, or returns
// cause for a required one. Callers hold r.mu.
func (r *Registry) disable(name, why string, cause error) error {
	if r.infos[name].Required {
		return fmt.Errorf("required plugin %q: %s: %w", name, why, cause)
	}
	r.logger.Warn("disabling plugin",
		zap.String("name", name),
		zap.String("reason", why),
		zap.Error(cause),
	)
	r.disabled[name] = true
	return nil
}

func (r *Registry) active() []string {
	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if !r.disabled[name] {
			out = append(out, name)
		}
	}
	return out
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func checkAPIVersion(name string, v int) error {
	switch {
	case v < plugin.APIVersionMin:
		return fmt.Errorf("plugin %q targets plugin API v%d; this server requires v%d or newer", name, v, plugin.APIVersionMin)
	case v > plugin.APIVersionCurrent:
		return fmt.Errorf("plugin %q targets plugin API v%d; this server supports up to v%d", name, v, plugin.APIVersionCurrent)
	}
	return nil
}

// topologicalSort orders the active plugins with Kahn's algorithm. Ready
// plugins are taken in name order so the result is deterministic.
func (r *Registry) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int)
	dependents := make(map[string][]string)
	for _, name := range r.sortedNames() {
		if r.disabled[name] {
			continue
		}
		inDegree[name] += 0
		for _, dep := range r.infos[name].Dependencies {
			if !r.disabled[dep] {
				inDegree[name]++
				dependents[dep] = append(dependents[dep], name)
			}
		}
	}

	var ready []string
	for name, d := range inDegree {
		if d == 0 {
			ready = append(ready, name)
		}
	}
	slices.Sort(ready)

	order := make([]string, 0, len(inDegree))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, d := range dependents[name] {
			inDegree[d]--
			if inDegree[d] == 0 {
				ready = append(ready, d)
				slices.Sort(ready)
			}
		}
	}

	if len(order) != len(inDegree) {
		var cycle []string
		for name, d := range inDegree {
			if d > 0 {
				cycle = append(cycle, name)
			}
		}
		slices.Sort(cycle)
		return nil, fmt.Errorf("dependency cycle detected among plugins: %v", cycle)
	}
	return order, nil
}
