package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apt-mirror/internal/app"
)

func newCheckPackagesCommand() *cobra.Command {
	var basePath string
	cmd := &cobra.Command{
		Use:   "check-packages",
		Short: "Report pool files unreferenced by the mirror and all snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			result, err := service.CheckPackages(cmd.Context(), app.CheckPackagesRequest{
				BasePath: resolveString(cmd, basePath, "base_path", "base-path"),
			})
			if err != nil {
				return err
			}
			for _, candidate := range result.Candidates {
				suffix := ""
				if candidate.Superseded {
					suffix = " (superseded)"
				}
				fmt.Printf("%s%s\n", candidate.Path, suffix)
			}
			fmt.Printf("%d packages unreferenced, %s reclaimable\n",
				len(result.Candidates), humanize.Bytes(uint64(result.TotalBytes)))
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base-path", "", "Mirror base directory")
	_ = viper.BindPFlag("base_path", cmd.Flags().Lookup("base-path"))
	return cmd
}

func newCleanUpPackagesCommand() *cobra.Command {
	var basePath string
	var confirm bool
	cmd := &cobra.Command{
		Use:   "clean-up-packages",
		Short: "Delete unreferenced pool files (dry run unless confirmed)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			result, err := service.CleanupPackages(cmd.Context(), app.CleanupRequest{
				BasePath: resolveString(cmd, basePath, "base_path", "base-path"),
				Confirm:  resolveBool(cmd, confirm, "confirm", "confirm"),
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s took %s\n", result.Message, result.Elapsed.Round(timeRounding))
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base-path", "", "Mirror base directory")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Actually delete; without it only report")
	_ = viper.BindPFlag("base_path", cmd.Flags().Lookup("base-path"))
	_ = viper.BindPFlag("confirm", cmd.Flags().Lookup("confirm"))
	return cmd
}
