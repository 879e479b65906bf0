package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apt-mirror/internal/app"
)

type createSnapshotOptions struct {
	BasePath        string
	Mirrors         []string
	StripMirrorName bool
	StripMirrorPath string
}

func newCreateSnapshotCommand() *cobra.Command {
	opts := createSnapshotOptions{}
	cmd := &cobra.Command{
		Use:   "create-snapshot",
		Short: "Freeze the current mirror state into an immutable snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateSnapshot(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.BasePath, "base-path", "", "Mirror base directory")
	cmd.Flags().StringSliceVar(&opts.Mirrors, "mirror", nil, "APT source line (repeatable; defaults to mirror_list config)")
	cmd.Flags().BoolVar(&opts.StripMirrorName, "strip-mirror-name", false, "Drop the mirror hostname from snapshot subtrees")
	cmd.Flags().StringVar(&opts.StripMirrorPath, "strip-mirror-path", "", "Path component to drop from snapshot subtrees")
	_ = viper.BindPFlag("base_path", cmd.Flags().Lookup("base-path"))
	_ = viper.BindPFlag("mirror_list", cmd.Flags().Lookup("mirror"))
	_ = viper.BindPFlag("strip_mirror_name", cmd.Flags().Lookup("strip-mirror-name"))
	_ = viper.BindPFlag("strip_mirror_path", cmd.Flags().Lookup("strip-mirror-path"))
	return cmd
}

func runCreateSnapshot(ctx context.Context, cmd *cobra.Command, opts createSnapshotOptions) error {
	service := newAppService()
	result, err := service.CreateSnapshot(ctx, app.CreateSnapshotRequest{
		BasePath:        resolveString(cmd, opts.BasePath, "base_path", "base-path"),
		MirrorList:      resolveStrings(cmd, opts.Mirrors, "mirror_list", "mirror"),
		StripMirrorName: resolveBool(cmd, opts.StripMirrorName, "strip_mirror_name", "strip-mirror-name"),
		StripMirrorPath: resolveString(cmd, opts.StripMirrorPath, "strip_mirror_path", "strip-mirror-path"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("created snapshot: %s (%d files)\n", result.Snapshot.Name, result.Snapshot.FileCount)
	return nil
}

func newListSnapshotsCommand() *cobra.Command {
	var basePath string
	cmd := &cobra.Command{
		Use:   "list-snapshots",
		Short: "List snapshots ordered by creation time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			result, err := service.ListSnapshots(cmd.Context(), app.ListSnapshotsRequest{
				BasePath: resolveString(cmd, basePath, "base_path", "base-path"),
			})
			if err != nil {
				return err
			}
			if len(result.Snapshots) == 0 {
				fmt.Println("no snapshots")
				return nil
			}
			for _, snapshot := range result.Snapshots {
				marker := " "
				if snapshot.Published {
					marker = "*"
				}
				fmt.Printf("%s %s  created=%s files=%d\n",
					marker, snapshot.Name, snapshot.CreatedAt.Format("2006-01-02 15:04:05"), snapshot.FileCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base-path", "", "Mirror base directory")
	_ = viper.BindPFlag("base_path", cmd.Flags().Lookup("base-path"))
	return cmd
}

func newPublishSnapshotCommand() *cobra.Command {
	var basePath string
	cmd := &cobra.Command{
		Use:   "publish-snapshot <name>",
		Short: "Point the publication pointer at a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := newAppService()
			result, err := service.PublishSnapshot(cmd.Context(), app.PublishSnapshotRequest{
				BasePath: resolveString(cmd, basePath, "base_path", "base-path"),
				Name:     args[0],
			})
			if err != nil {
				return err
			}
			fmt.Printf("published %s at %s\n", result.Name, result.PublishPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base-path", "", "Mirror base directory")
	_ = viper.BindPFlag("base_path", cmd.Flags().Lookup("base-path"))
	return cmd
}

func newDeleteSnapshotCommand() *cobra.Command {
	var basePath string
	cmd := &cobra.Command{
		Use:   "delete-snapshot <name>",
		Short: "Delete a snapshot's retention record and tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := newAppService()
			err := service.DeleteSnapshot(cmd.Context(), app.DeleteSnapshotRequest{
				BasePath: resolveString(cmd, basePath, "base_path", "base-path"),
				Name:     args[0],
			})
			if err != nil {
				return err
			}
			fmt.Printf("deleted snapshot: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base-path", "", "Mirror base directory")
	_ = viper.BindPFlag("base_path", cmd.Flags().Lookup("base-path"))
	return cmd
}
