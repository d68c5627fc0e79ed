package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/cellwarden/cellwarden/internal/config"
	"github.com/cellwarden/cellwarden/internal/fancy"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

var validateCmd = &cli.Command{
	Name:    "validate",
	Aliases: []string{"lint"},
	Usage:   "Validate a configuration file and its scenario directories",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "tree",
			Aliases: []string{"t"},
			Usage:   "Show detailed tree view of the validated configuration",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the configuration file",
		},
	},
	Suggest: true,
	Action:  validateAction,
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		if cmd.Args().Len() < 1 {
			return fmt.Errorf(
				"config file path required (use the --config flag, or provide the config file as positional argument)",
			)
		}
		configPath = cmd.Args().Get(0)
	}

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	fmt.Printf("Configuration file %s is valid\n", configPath)

	scenarios := scenario.LoadAll(
		cfg.BuiltinScenariosDirectory,
		cfg.ScenariosDirectory,
		slog.Default(),
	)

	if cmd.Bool("tree") {
		fmt.Println(renderConfigTree(cfg, scenarios))
		return nil
	}
	fmt.Println(renderConfigSummary(configPath, cfg, scenarios))
	return nil
}

// renderConfigSummary creates a formatted summary string for the configuration
func renderConfigSummary(path string, cfg *config.Config, scenarios []*scenario.Scenario) string {
	var summary strings.Builder

	summary.WriteString("\nConfig Summary:\n")
	summary.WriteString(fmt.Sprintf("- Path: %s\n", path))
	summary.WriteString(fmt.Sprintf("- Name: %s\n", cfg.Name))
	summary.WriteString(fmt.Sprintf("- Clients: %d\n", len(cfg.Clients)))
	summary.WriteString(fmt.Sprintf("- Components: %d\n", len(cfg.Components)))
	summary.WriteString(fmt.Sprintf("- Scenarios: %d\n", len(scenarios)))
	summary.WriteString("\nUse --tree for a more detailed view of the config.")

	return summary.String()
}

// renderConfigTree renders the full configuration as a styled tree.
func renderConfigTree(cfg *config.Config, scenarios []*scenario.Scenario) string {
	root := fancy.Tree().Root(fancy.RootStyle.Render(
		fmt.Sprintf("%s (%s:%d)", cfg.Name, cfg.Address, cfg.Port)))

	clients := fancy.BranchNode("Clients", fmt.Sprintf("(%d)", len(cfg.Clients)))
	for _, name := range cfg.ClientNames() {
		client := cfg.Clients[name]
		label := fmt.Sprintf("%s %s",
			fancy.ClientText(name),
			fancy.PathText(fmt.Sprintf("%s:%d", client.Address, client.Port)))
		if len(client.Groups) > 0 {
			label += " " + fancy.GroupText("["+strings.Join(client.Groups, ", ")+"]")
		}
		if len(client.DependsOn) > 0 {
			label += fancy.InfoStyle.Render(
				" depends on " + strings.Join(client.DependsOn, ", "))
		}
		clients.Child(label)
	}
	root.Child(clients)

	groups := cfg.Groups()
	groupNames := make([]string, 0, len(groups))
	for g := range groups {
		groupNames = append(groupNames, g)
	}
	sort.Strings(groupNames)
	groupNode := fancy.BranchNode("Groups", fmt.Sprintf("(%d)", len(groupNames)))
	for _, g := range groupNames {
		groupNode.Child(fmt.Sprintf("%s %s",
			fancy.GroupText(g),
			fancy.PathText(strings.Join(groups[g], ", "))))
	}
	root.Child(groupNode)

	componentNames := make([]string, 0, len(cfg.Components))
	for name := range cfg.Components {
		componentNames = append(componentNames, name)
	}
	sort.Strings(componentNames)
	componentNode := fancy.BranchNode("Components", fmt.Sprintf("(%d)", len(componentNames)))
	for _, name := range componentNames {
		componentNode.Child(fmt.Sprintf("%s %s",
			fancy.ComponentText(name),
			fancy.PathText(cfg.Components[name].Type())))
	}
	root.Child(componentNode)

	scenarioNode := fancy.BranchNode("Scenarios", fmt.Sprintf("(%d)", len(scenarios)))
	for _, s := range scenarios {
		label := fmt.Sprintf("%s %s",
			fancy.ScenarioText(s.Name),
			fancy.PathText(fmt.Sprintf("priority=%d trigger=%s actions=%d",
				s.EffectivePriority(), s.Trigger.Type, len(s.Actions))))
		if s.Description != "" {
			label += " " + fancy.InfoStyle.Render(fancy.TruncateString(s.Description, 60))
		}
		scenarioNode.Child(label)
	}
	root.Child(scenarioNode)

	return root.String()
}
