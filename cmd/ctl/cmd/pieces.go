package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jpfielding/jfif.go/pkg/jfif"
	"github.com/spf13/cobra"
)

// NewPiecesCmd creates the pieces cobra command
func NewPiecesCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pieces",
		Short: "Dump the marker piece structure of a JPEG stream",
		Long:  "Streams a JPEG file through the tokenizer and prints one line per piece: markers, byte-stuffed fills and entropy-coded runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}

			var in io.Reader
			if filePath == "" || filePath == "-" {
				in = os.Stdin
			} else {
				f, err := os.Open(filePath)
				if err != nil {
					return fmt.Errorf("failed to open file: %v", err)
				}
				defer f.Close()
				in = f
			}

			tok := jfif.NewTokenizer(in)
			for {
				piece, err := tok.Next()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return fmt.Errorf("tokenize error: %w", err)
				}
				switch p := piece.(type) {
				case jfif.MarkerWithLength:
					fmt.Printf("marker  %-6s filler=%d %d bytes\n", p.Type, p.FillerCount, len(p.Value))
				case jfif.EmptyMarker:
					fmt.Printf("marker  %-6s filler=%d\n", p.Type, p.FillerCount)
				case jfif.StuffedFF:
					fmt.Printf("stuffed 0xFF   filler=%d\n", p.FillerCount)
				case jfif.EntropyData:
					fmt.Printf("entropy %d bytes\n", len(p.Data))
				}
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "JPEG file path to dump ('-' for stdin)")
	return cmd
}
