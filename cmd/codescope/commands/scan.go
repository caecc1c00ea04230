package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codescope-io/codescope/pkg/models"
)

func NewScanCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [service...]",
		Short: "Run a one-shot scan from the command line",
		Long: `Run a security or quality scan against one or more registered services and
wait for completion, printing progress and a result summary.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(version, args)
		},
	}

	cmd.Flags().StringP("kind", "k", "quality", "scan kind (security, quality)")
	cmd.Flags().StringSliceP("items", "i", nil, "check item ids (quality scans, default all enabled)")
	cmd.Flags().DurationP("poll", "P", 500*time.Millisecond, "progress poll interval")

	_ = viper.BindPFlag("scan.kind", cmd.Flags().Lookup("kind"))
	_ = viper.BindPFlag("scan.items", cmd.Flags().Lookup("items"))
	_ = viper.BindPFlag("scan.poll", cmd.Flags().Lookup("poll"))

	return cmd
}

func runScan(version string, services []string) error {
	p, err := buildPlatform(version)
	if err != nil {
		return err
	}
	defer p.close()

	kind := models.ScanKind(viper.GetString("scan.kind"))
	items := viper.GetStringSlice("scan.items")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scan, err := p.engine.StartBatchScan(ctx, services, kind, items)
	if err != nil {
		return err
	}
	fmt.Printf("Scan %s started: %d task(s) across %d service(s)\n", scan.ID, scan.TotalTasks, len(services))

	poll := viper.GetDuration("scan.poll")
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	lastProgress := -1
	for {
		select {
		case <-ctx.Done():
			if _, cerr := p.engine.CancelScan(context.Background(), scan.ID); cerr != nil {
				p.logger.WithError(cerr).Warn("Cancellation failed")
			}
			return fmt.Errorf("scan %s interrupted", scan.ID)
		case <-ticker.C:
		}

		current, err := p.engine.GetScan(context.Background(), scan.ID)
		if err != nil {
			return err
		}
		if pct := current.Progress(); pct != lastProgress {
			fmt.Printf("  progress: %d%% (%d/%d tasks)\n", pct, current.CompletedTasks, current.TotalTasks)
			lastProgress = pct
		}
		if current.Status.Terminal() {
			printSummary(current)
			if current.Status == models.ScanStatusFailed {
				return fmt.Errorf("scan %s failed", current.ID)
			}
			return nil
		}
	}
}

func printSummary(scan *models.Scan) {
	fmt.Printf("\nScan %s finished: %s\n", scan.ID, scan.Status)
	if scan.Kind == models.ScanKindSecurity {
		fmt.Printf("  dependencies: %d total, %d vulnerable, %d license violations\n",
			scan.Security.TotalDependencies, scan.Security.VulnerableDependencies, scan.Security.LicenseViolations)
	} else {
		fmt.Printf("  issues: %d security, %d reliability, %d maintainability, %d code smell\n",
			scan.Categories.Security, scan.Categories.Reliability,
			scan.Categories.Maintainability, scan.Categories.CodeSmell)
		if scan.Scores != nil {
			fmt.Printf("  scores: quality %.0f, security %.0f, reliability %.0f, maintainability %.0f\n",
				scan.Scores.Quality, scan.Scores.Security, scan.Scores.Reliability, scan.Scores.Maintainability)
		}
	}
	fmt.Printf("  severities: %d critical, %d major, %d minor, %d info\n",
		scan.Severities.Critical, scan.Severities.Major, scan.Severities.Minor, scan.Severities.Info)
	if scan.Error != "" {
		fmt.Fprintf(os.Stderr, "  error: %s\n", scan.Error)
	}
}
