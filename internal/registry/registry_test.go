package registry

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/HerbHall/ponplan/internal/event"
	"github.com/HerbHall/ponplan/pkg/plugin"
	"go.uber.org/zap"
)

type testPlugin struct {
	info     plugin.PluginInfo
	initErr  error
	startErr error
	log      *[]string
}

func newTestPlugin(name string, deps ...string) *testPlugin {
	return &testPlugin{info: plugin.PluginInfo{
		Name:         name,
		Version:      "1.0.0",
		Description:  "test plugin " + name,
		Dependencies: deps,
		APIVersion:   plugin.APIVersionCurrent,
	}}
}

func (p *testPlugin) Info() plugin.PluginInfo { return p.info }

func (p *testPlugin) Init(context.Context, plugin.Dependencies) error {
	p.record("init")
	return p.initErr
}

func (p *testPlugin) Start(context.Context) error {
	p.record("start")
	return p.startErr
}

func (p *testPlugin) Stop(context.Context) error {
	p.record("stop")
	return nil
}

func (p *testPlugin) record(step string) {
	if p.log != nil {
		*p.log = append(*p.log, step+":"+p.info.Name)
	}
}

type routedPlugin struct {
	*testPlugin
}

func (p routedPlugin) Routes() []plugin.Route {
	return []plugin.Route{{Method: "GET", Path: "/x", Handler: func(http.ResponseWriter, *http.Request) {}}}
}

type subscribingPlugin struct {
	*testPlugin
	got *[]string
}

func (p subscribingPlugin) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{{
		Topic: "inventory.device.created",
		Handler: func(_ context.Context, ev plugin.Event) {
			*p.got = append(*p.got, ev.Topic)
		},
	}}
}

type healthyPlugin struct {
	*testPlugin
}

func (healthyPlugin) Health(context.Context) plugin.HealthStatus {
	return plugin.HealthStatus{Status: "degraded", Message: "rules file missing"}
}

func noDeps(string) plugin.Dependencies { return plugin.Dependencies{Logger: zap.NewNop()} }

func mustRegister(t *testing.T, r *Registry, ps ...plugin.Plugin) {
	t.Helper()
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Info().Name, err)
		}
	}
}

func TestRegister_Rejects(t *testing.T) {
	r := New(zap.NewNop())
	mustRegister(t, r, newTestPlugin("inventory"))

	if err := r.Register(newTestPlugin("inventory")); err == nil {
		t.Error("duplicate name accepted")
	}
	if err := r.Register(newTestPlugin("")); err == nil {
		t.Error("empty name accepted")
	}
}

func TestLifecycle_Order(t *testing.T) {
	var log []string
	inv := newTestPlugin("inventory")
	plan := newTestPlugin("planner", "inventory")
	inv.log, plan.log = &log, &log

	r := New(zap.NewNop())
	mustRegister(t, r, plan, inv)

	ctx := context.Background()
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := r.InitAll(ctx, nil, noDeps); err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	if err := r.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	r.StopAll(ctx)

	want := []string{
		"init:inventory", "init:planner",
		"start:inventory", "start:planner",
		"stop:planner", "stop:inventory",
	}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("lifecycle = %v, want %v", log, want)
	}
}

func TestValidate_MissingDependency(t *testing.T) {
	t.Run("optional plugin is disabled", func(t *testing.T) {
		r := New(zap.NewNop())
		mustRegister(t, r, newTestPlugin("planner", "inventory"))
		if err := r.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if !r.IsDisabled("planner") {
			t.Error("planner should be disabled")
		}
		if _, ok := r.Get("planner"); ok {
			t.Error("Get returned a disabled plugin")
		}
	})

	t.Run("required plugin fails", func(t *testing.T) {
		r := New(zap.NewNop())
		p := newTestPlugin("planner", "inventory")
		p.info.Required = true
		mustRegister(t, r, p)
		if err := r.Validate(); err == nil {
			t.Fatal("expected error for required plugin with missing dependency")
		}
	})
}

func TestValidate_CascadeDisable(t *testing.T) {
	r := New(zap.NewNop())
	a := newTestPlugin("a")
	a.info.APIVersion = plugin.APIVersionCurrent + 1
	mustRegister(t, r, a, newTestPlugin("b", "a"), newTestPlugin("c", "b"), newTestPlugin("d"))

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if !r.IsDisabled(name) {
			t.Errorf("%s should be disabled", name)
		}
	}
	if all := r.All(); len(all) != 1 || all[0].Info().Name != "d" {
		t.Errorf("active plugins = %d, want only d", len(all))
	}
}

func TestValidate_Cycle(t *testing.T) {
	r := New(zap.NewNop())
	mustRegister(t, r, newTestPlugin("a", "b"), newTestPlugin("b", "a"))

	err := r.Validate()
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("err = %v, want cycle error", err)
	}
}

func TestInitAll_OptionalFailureDisables(t *testing.T) {
	r := New(zap.NewNop())
	bad := newTestPlugin("inventory")
	bad.initErr = errors.New("no store")
	var log []string
	dependent := newTestPlugin("planner", "inventory")
	dependent.log = &log
	mustRegister(t, r, bad, dependent, newTestPlugin("other"))

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := r.InitAll(context.Background(), nil, noDeps); err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	if !r.IsDisabled("inventory") {
		t.Error("inventory should be disabled after failed Init")
	}
	if !r.IsDisabled("planner") {
		t.Error("planner should be disabled when its dependency failed")
	}
	if len(log) != 0 {
		t.Errorf("planner lifecycle ran: %v", log)
	}
	if r.IsDisabled("other") {
		t.Error("other should stay active")
	}
}

func TestInitAll_RequiredFailureAborts(t *testing.T) {
	r := New(zap.NewNop())
	bad := newTestPlugin("planner")
	bad.info.Required = true
	bad.initErr = errors.New("bad rules")
	mustRegister(t, r, bad)

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	err := r.InitAll(context.Background(), nil, noDeps)
	if err == nil || !errors.Is(err, bad.initErr) {
		t.Fatalf("err = %v, want wrapped init error", err)
	}
}

func TestInitAll_WiresSubscriptions(t *testing.T) {
	var got []string
	bus := event.NewBus(zap.NewNop())
	r := New(zap.NewNop())
	mustRegister(t, r, subscribingPlugin{testPlugin: newTestPlugin("planner"), got: &got})

	ctx := context.Background()
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := r.InitAll(ctx, bus, noDeps); err != nil {
		t.Fatalf("InitAll: %v", err)
	}

	_ = bus.Publish(ctx, plugin.Event{Topic: "inventory.device.created"})
	r.StopAll(ctx)
	_ = bus.Publish(ctx, plugin.Event{Topic: "inventory.device.created"})

	if len(got) != 1 {
		t.Errorf("handler calls = %d, want 1 (unsubscribed on stop)", len(got))
	}
}

func TestAllRoutes_HealthAll_ResolveByRole(t *testing.T) {
	r := New(zap.NewNop())
	inv := newTestPlugin("inventory")
	inv.info.Roles = []string{"inventory"}
	mustRegister(t, r,
		routedPlugin{testPlugin: inv},
		healthyPlugin{testPlugin: newTestPlugin("planner")},
	)
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	routes := r.AllRoutes()
	if len(routes) != 1 || len(routes["inventory"]) != 1 {
		t.Errorf("AllRoutes = %v", routes)
	}

	health := r.HealthAll(context.Background())
	if health["inventory"].Status != "healthy" || health["planner"].Status != "degraded" {
		t.Errorf("HealthAll = %+v", health)
	}

	if got := r.ResolveByRole("inventory"); len(got) != 1 || got[0].Info().Name != "inventory" {
		t.Errorf("ResolveByRole(inventory) = %v", got)
	}
	if got := r.ResolveByRole("planning"); len(got) != 0 {
		t.Errorf("ResolveByRole(planning) = %v, want none", got)
	}
}
