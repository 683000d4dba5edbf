package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/ponplan/internal/config"
	"github.com/HerbHall/ponplan/internal/inventory"
	"github.com/HerbHall/ponplan/internal/planner"
	"github.com/HerbHall/ponplan/internal/seed"
	"github.com/HerbHall/ponplan/internal/server"
	"github.com/HerbHall/ponplan/internal/store"
	"github.com/HerbHall/ponplan/internal/topology"
	"github.com/HerbHall/ponplan/internal/version"
	"github.com/HerbHall/ponplan/pkg/models"
	"github.com/HerbHall/ponplan/pkg/plugin"
)

// loadRules builds the rules table the server would use for the given
// config file, without opening the database.
func loadRules(configPath string) (*topology.Rules, error) {
	v, err := server.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg := planner.DefaultConfig()
	if err := config.ForPlugin(v, "planner").Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("planner config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg.LoadRules()
}

// runRules prints the active rules table as YAML. The output is a valid
// rules file.
func runRules(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rules, err := loadRules(*configPath)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(rules.Snapshot()); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return enc.Close()
}

// runPlan prints the topology, validation, recommendations and diagram for
// one subscriber count.
func runPlan(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "path to configuration file")
	subscribers := fs.Int("subscribers", 0, "number of subscribers to serve")
	ponName := fs.String("pon", "gpon", "PON technology (epon, gpon, xgpon, xgspon)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pon, err := models.ParsePonType(*ponName)
	if err != nil {
		return err
	}
	rules, err := loadRules(*configPath)
	if err != nil {
		return err
	}

	p := topology.NewPlanner(rules)
	plan, err := p.Calculate(*subscribers, pon)
	if err != nil {
		return err
	}
	res := p.Validate(plan)

	fmt.Fprintf(out, "Subscribers: %d\n", plan.SubscriberCount)
	fmt.Fprintf(out, "PON:         %s (capacity %d)\n", pon.Label(), plan.CapacityLimit)
	fmt.Fprintf(out, "Shape:       %s\n", plan.Shape)
	fmt.Fprintf(out, "Total loss:  %.1f dB of %.1f dB\n", plan.TotalLossDB, rules.MaxLossDB())
	fmt.Fprintf(out, "Diagram:     %s\n", topology.BuildDiagram(plan).Text)

	status := "valid"
	if !res.IsValid {
		status = "INVALID"
	}
	fmt.Fprintf(out, "Validation:  %s\n", status)
	for _, is := range res.Errors {
		fmt.Fprintf(out, "  error   %s: %s\n", is.Code, is.Message)
	}
	for _, is := range res.Warnings {
		fmt.Fprintf(out, "  warning %s: %s\n", is.Code, is.Message)
	}

	fmt.Fprintln(out, "Recommendations:")
	for _, rec := range p.RecommendFor(plan, res) {
		fmt.Fprintf(out, "  - %s\n", rec)
	}
	return nil
}

// runSeed loads the demo fiber tree into the configured database. A
// database that already holds devices is left alone.
func runSeed(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "path to configuration file")
	dbPath := fs.String("db", "", "database path (overrides database.path)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := server.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		v.Set("database.path", *dbPath)
	}
	logger, err := config.NewLogger(v)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	db, err := store.New(v.GetString("database.path"))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		return err
	}

	inv := inventory.New()
	if err := inv.Init(ctx, plugin.Dependencies{Logger: logger.Named("inventory"), Store: db}); err != nil {
		return err
	}
	n, err := seed.SeedDemoTree(ctx, inv)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(out, "inventory already populated; nothing seeded")
		return nil
	}
	fmt.Fprintf(out, "seeded %d devices into %s\n", n, v.GetString("database.path"))
	return nil
}
