package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smazurov/v4lcap/internal/capture"
	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List V4L2 capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			found, err := capture.SystemProber{}.Devices()
			if err != nil {
				return err
			}
			return printDevices(cmd.OutOrStdout(), found, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printDevices(w io.Writer, devices []v4l2.DeviceInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(devices)
	}
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No capture devices found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tDRIVER\tBUS\tID")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.DevicePath, d.DeviceName, d.Driver, d.BusInfo, d.DeviceID)
	}
	return tw.Flush()
}

// CreateFormatsCmd creates the formats command.
func CreateFormatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "formats <device>",
		Short: "List pixel formats, frame sizes and frame rates of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := capture.SystemProber{}.Formats(args[0])
			if err != nil {
				return err
			}
			return printFormats(cmd.OutOrStdout(), formats, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	return cmd
}

func printFormats(w io.Writer, formats []capture.FormatInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(formats)
	}
	for _, f := range formats {
		flags := ""
		if f.Compressed {
			flags += " compressed"
		}
		if f.Emulated {
			flags += " emulated"
		}
		fmt.Fprintf(w, "%s  %s%s\n", f.FourCC, f.Description, flags)
		for _, s := range f.Sizes {
			fmt.Fprintf(w, "    %dx%d", s.Width, s.Height)
			for _, fps := range s.FPS {
				fmt.Fprintf(w, "  %.4g", fps)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
