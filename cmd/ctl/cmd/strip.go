package cmd

import (
	"context"
	"fmt"

	"github.com/jpfielding/jfif.go/pkg/jfif"
	"github.com/spf13/cobra"
)

// NewStripCmd creates the strip cobra command
func NewStripCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strip",
		Short: "Drop application segments and comments from a JPEG file",
		Long:  "Decodes a JPEG file, removes the leading blocks that are not structurally required (APPn and COM), and re-emits the rest unchanged. The output loses its JFIF/Exif metadata.",
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath, _ := cmd.Flags().GetString("in")
			outPath, _ := cmd.Flags().GetString("out")

			img, err := jfif.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}
			img.Strip()
			if err := jfif.WriteFile(outPath, img); err != nil {
				return fmt.Errorf("write error: %w", err)
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("in", "i", "", "input JPEG file path")
	pf.StringP("out", "o", "", "output JPEG file path")
	cmd.MarkPersistentFlagRequired("in")
	cmd.MarkPersistentFlagRequired("out")
	return cmd
}
