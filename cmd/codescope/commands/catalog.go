package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codescope-io/codescope/internal/quality"
	"github.com/codescope-io/codescope/pkg/models"
)

func NewCatalogCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the check item catalog",
	}
	cmd.AddCommand(newCatalogTreeCommand(version))
	cmd.AddCommand(newCatalogPromptCommand(version))
	return cmd
}

func newCatalogTreeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the check group and item tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPlatform(version)
			if err != nil {
				return err
			}
			defer p.close()

			for _, group := range p.catalog.Tree() {
				fmt.Printf("%s %s (%s)\n", enabledMark(group.Enabled), group.Name, group.Key)
				for _, item := range group.Items {
					fmt.Printf("  %s %-32s %-10s %s\n",
						enabledMark(item.Enabled), item.ItemKey, item.Severity, item.ItemName)
				}
			}
			return nil
		},
	}
}

func newCatalogPromptCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <item-id> [service-id]",
		Short: "Render the analysis prompt for a check item",
		Long: `Render the prompt a model-driven checker would receive for one check item,
optionally against a registered service's file snapshot.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPlatform(version)
			if err != nil {
				return err
			}
			defer p.close()

			item, err := p.catalog.GetItem(args[0])
			if err != nil {
				return err
			}

			snapshot := models.FileSnapshot{}
			serviceName := "example-service"
			if len(args) == 2 {
				svc, err := p.registry.GetService(args[1])
				if err != nil {
					return err
				}
				serviceName = svc.Name
				snapshot, err = p.registry.Snapshot(args[1])
				if err != nil {
					return err
				}
			}

			renderer := quality.NewPromptRenderer(p.cfg.Checker)
			fmt.Println(renderer.Render(serviceName, item, snapshot))
			return nil
		},
	}
}

func enabledMark(enabled bool) string {
	if enabled {
		return "[x]"
	}
	return "[ ]"
}
