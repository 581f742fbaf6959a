package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/jpfielding/jfif.go/pkg/jfif"
	"github.com/jpfielding/jfif.go/pkg/jfif/exif"
	"github.com/jpfielding/jfif.go/pkg/util"
	"github.com/spf13/cobra"
)

// NewInspectCmd creates the inspect cobra command
func NewInspectCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect JPEG/JFIF file structure",
		Long:  "Parses and displays dimensions, color space, pixel density, the marker block inventory and any Exif directories of a JPEG file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}
			if filePath == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}
			idForm, _ := cmd.Flags().GetString("id")
			return runInspect(filePath, idForm)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "JPEG file path to inspect")
	pf.String("id", "uuid", "content id form for the entropy data (uuid|md5)")
	return cmd
}

func runInspect(filePath, idForm string) error {
	img, err := jfif.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	fmt.Println("=== Image ===")
	fmt.Printf("Width: %d\n", img.Width)
	fmt.Printf("Height: %d\n", img.Height)
	fmt.Printf("BitDepth: %d\n", img.BitDepth)
	fmt.Printf("ColorSpace: %s\n", img.ColorSpace)
	fmt.Printf("Density: %dx%d %s\n", img.DensityX, img.DensityY, img.DensityUnit)
	contentID := util.ContentUUID(img.ImageData)
	if idForm == "md5" {
		contentID = util.Md5ThenHex(img.ImageData)
	}
	fmt.Printf("ImageData: %d bytes (content id %s)\n", len(img.ImageData), contentID)

	fmt.Println("\n=== Leading blocks ===")
	for i, block := range img.LeadingBlocks {
		fmt.Printf("%3d %-6s %d bytes\n", i, jfif.KindName(block.Kind), len(block.Data))
	}

	for _, block := range img.LeadingBlocks {
		if block.Kind != jfif.APP1 || !bytes.HasPrefix(block.Data, []byte("Exif\x00\x00")) {
			continue
		}
		dirs, err := exif.Parse(block.Data[6:])
		if err != nil {
			slog.Warn("Exif parse failed", "error", err)
			continue
		}
		for di, dir := range dirs {
			fmt.Printf("\n=== Exif IFD%d ===\n", di)
			for i := range dir {
				entry := &dir[i]
				if s, ok := entry.ASCII(); ok {
					fmt.Printf("%-16s %-10s count=%d %q\n", exif.TagName(entry.Tag), entry.Type, entry.Count, s)
					continue
				}
				fmt.Printf("%-16s %-10s count=%d %v\n", exif.TagName(entry.Tag), entry.Type, entry.Count, entry.Value)
			}
		}
	}
	return nil
}
