package cmd

import (
	"fmt"
	"os"

	"github.com/smazurov/v4lcap/internal/config"
	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// CreateConfigCmd creates the config command group.
func CreateConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the capture configuration file",
	}
	cmd.AddCommand(createConfigInitCmd(), createConfigCheckCmd())
	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with default capture settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "v4lcap.toml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveCaptureConfig(path, config.DefaultCaptureFile()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func createConfigCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate a configuration file without opening the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadCaptureConfig(args[0])
			if err != nil {
				return err
			}
			cfg := settings.Session
			fmt.Fprintf(cmd.OutOrStdout(), "device=%s format=%s size=%dx%d buffers=%d mapping=%s\n",
				cfg.Path, v4l2.FormatFourCC(cfg.PixelFormat), cfg.Width, cfg.Height, settings.Buffers, cfg.MappingPolicy)
			return nil
		},
	}
}
