package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apt-mirror/internal/app"
)

type synchronizeOptions struct {
	BasePath         string
	Mirrors          []string
	SourceFilter     string
	Architectures    []string
	Workers          int
	HTTPTimeoutSec   int
	HTTPRetries      int
	HTTPRetryDelayMs int
	SkipCleanup      bool
}

func newSynchronizeCommand() *cobra.Command {
	opts := synchronizeOptions{}
	cmd := &cobra.Command{
		Use:     "synchronize",
		Aliases: []string{"sync"},
		Short:   "Fetch upstream indices and pool files into the mirror store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSynchronize(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.BasePath, "base-path", "", "Mirror base directory")
	cmd.Flags().StringSliceVar(&opts.Mirrors, "mirror", nil, "APT source line (repeatable; defaults to mirror_list config)")
	cmd.Flags().StringVar(&opts.SourceFilter, "source", "", "Regex filter applied to source lines")
	cmd.Flags().StringSliceVar(&opts.Architectures, "arch", []string{"amd64"}, "Architectures to mirror")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Concurrent pool download workers")
	cmd.Flags().IntVar(&opts.HTTPTimeoutSec, "http-timeout", 60, "HTTP timeout in seconds (0 = default)")
	cmd.Flags().IntVar(&opts.HTTPRetries, "http-retries", 3, "HTTP retries per request (0 = default)")
	cmd.Flags().IntVar(&opts.HTTPRetryDelayMs, "http-retry-delay-ms", 200, "HTTP retry base delay in ms (0 = default)")
	cmd.Flags().BoolVar(&opts.SkipCleanup, "skip-cleanup", false, "Skip the post-sync unreferenced package cleanup")

	_ = viper.BindPFlag("base_path", cmd.Flags().Lookup("base-path"))
	_ = viper.BindPFlag("mirror_list", cmd.Flags().Lookup("mirror"))
	_ = viper.BindPFlag("source_filter", cmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("architectures", cmd.Flags().Lookup("arch"))
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("http_timeout_sec", cmd.Flags().Lookup("http-timeout"))
	_ = viper.BindPFlag("http_retries", cmd.Flags().Lookup("http-retries"))
	_ = viper.BindPFlag("http_retry_delay_ms", cmd.Flags().Lookup("http-retry-delay-ms"))
	_ = viper.BindPFlag("skip_cleanup", cmd.Flags().Lookup("skip-cleanup"))

	return cmd
}

func runSynchronize(ctx context.Context, cmd *cobra.Command, opts synchronizeOptions) error {
	service := newAppService()
	result, err := service.Synchronize(ctx, app.SyncRequest{
		BasePath:         resolveString(cmd, opts.BasePath, "base_path", "base-path"),
		MirrorList:       resolveStrings(cmd, opts.Mirrors, "mirror_list", "mirror"),
		SourceFilter:     resolveString(cmd, opts.SourceFilter, "source_filter", "source"),
		Architectures:    resolveStrings(cmd, opts.Architectures, "architectures", "arch"),
		Workers:          resolveInt(cmd, opts.Workers, "workers", "workers"),
		HTTPTimeoutSec:   resolveInt(cmd, opts.HTTPTimeoutSec, "http_timeout_sec", "http-timeout"),
		HTTPRetries:      resolveInt(cmd, opts.HTTPRetries, "http_retries", "http-retries"),
		HTTPRetryDelayMs: resolveInt(cmd, opts.HTTPRetryDelayMs, "http_retry_delay_ms", "http-retry-delay-ms"),
		SkipCleanup:      resolveBool(cmd, opts.SkipCleanup, "skip_cleanup", "skip-cleanup"),
	})
	if err != nil {
		return err
	}
	if result.NoOp {
		fmt.Println(result.Message)
		return nil
	}
	for _, outcome := range result.Sources {
		if outcome.Err != "" {
			fmt.Printf("failed: %s (%s)\n", outcome.Source, outcome.Err)
			continue
		}
		fmt.Printf("synced: %s (changed=%d kept=%d)\n", outcome.Source, outcome.FilesChanged, outcome.FilesKept)
	}
	fmt.Printf("%s took %s\n", result.Message, result.Elapsed.Round(timeRounding))
	if result.FailedSources > 0 {
		return fmt.Errorf("%d of %d sources failed to synchronize", result.FailedSources, len(result.Sources))
	}
	return nil
}
