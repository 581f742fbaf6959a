package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jpfielding/jfif.go/pkg/jfif"
	"github.com/spf13/cobra"
)

// NewDensityCmd creates the density cobra command
func NewDensityCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "density",
		Short: "Rewrite the pixel density of a JPEG file",
		Long:  "Streams a JPEG file piece by piece and patches the density fields of its JFIF APP0 header. The compressed image data passes through untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath, _ := cmd.Flags().GetString("in")
			outPath, _ := cmd.Flags().GetString("out")
			unitName, _ := cmd.Flags().GetString("unit")
			x, _ := cmd.Flags().GetUint16("x")
			y, _ := cmd.Flags().GetUint16("y")

			var unit jfif.DensityUnit
			switch unitName {
			case "dpi":
				unit = jfif.DotsPerInch
			case "dpcm":
				unit = jfif.DotsPerCentimeter
			default:
				return fmt.Errorf("unknown unit %q (want dpi or dpcm)", unitName)
			}

			in, err := os.Open(inPath)
			if err != nil {
				return fmt.Errorf("failed to open input file: %v", err)
			}
			defer in.Close()

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %v", err)
			}

			if err := jfif.RewriteDensity(in, out, unit, x, y); err != nil {
				out.Close()
				return fmt.Errorf("rewrite error: %w", err)
			}
			return out.Close()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("in", "i", "", "input JPEG file path")
	pf.StringP("out", "o", "", "output JPEG file path")
	pf.StringP("unit", "u", "dpi", "density unit (dpi|dpcm)")
	pf.Uint16P("x", "x", 72, "horizontal density")
	pf.Uint16P("y", "y", 72, "vertical density")
	cmd.MarkPersistentFlagRequired("in")
	cmd.MarkPersistentFlagRequired("out")
	return cmd
}
