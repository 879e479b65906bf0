package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"apt-mirror/internal/app"
)

func newStatusCommand() *cobra.Command {
	var basePath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the published snapshot and last sync time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service := newAppService()
			result, err := service.Status(cmd.Context(), app.StatusRequest{
				BasePath: resolveString(cmd, basePath, "base_path", "base-path"),
			})
			if err != nil {
				return err
			}
			switch {
			case result.Published != "":
				fmt.Printf("publishes: %s\n", result.Published)
			case result.Synchronized:
				fmt.Printf("last sync: %s, not published\n", result.LastSync.Format("2006-01-02 15:04:05"))
			default:
				fmt.Println("packages not synchronized")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base-path", "", "Mirror base directory")
	_ = viper.BindPFlag("base_path", cmd.Flags().Lookup("base-path"))
	return cmd
}
