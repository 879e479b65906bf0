package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apt-mirror/internal/app"
)

type pruneOptions struct {
	BasePath string
	KeepLast int
	KeepDays int
	DryRun   bool
}

func newPruneCommand() *cobra.Command {
	opts := pruneOptions{}
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old snapshots based on retention policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrune(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.BasePath, "base-path", "", "Mirror base directory")
	cmd.Flags().IntVar(&opts.KeepLast, "keep-last", 0, "Keep last N snapshots")
	cmd.Flags().IntVar(&opts.KeepDays, "keep-days", 0, "Keep snapshots newer than N days")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", true, "Only report prune actions without deleting")

	_ = viper.BindPFlag("base_path", cmd.Flags().Lookup("base-path"))
	_ = viper.BindPFlag("keep_last", cmd.Flags().Lookup("keep-last"))
	_ = viper.BindPFlag("keep_days", cmd.Flags().Lookup("keep-days"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runPrune(ctx context.Context, cmd *cobra.Command, opts pruneOptions) error {
	service := newAppService()
	result, err := service.PruneSnapshots(ctx, app.PruneRequest{
		BasePath: resolveString(cmd, opts.BasePath, "base_path", "base-path"),
		KeepLast: resolveInt(cmd, opts.KeepLast, "keep_last", "keep-last"),
		KeepDays: resolveInt(cmd, opts.KeepDays, "keep_days", "keep-days"),
		DryRun:   resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
	})
	if err != nil {
		return err
	}
	if result.DryRun {
		fmt.Printf("dry-run: keep=%d delete=%d\n", result.KeepCount, result.DeleteCount)
		return nil
	}
	fmt.Printf("pruned snapshots: %d\n", result.DeleteCount)
	return nil
}
