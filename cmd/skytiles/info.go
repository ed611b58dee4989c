package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/subcommands"

	"github.com/astrovis/go-skytiles/mbt"
	"github.com/astrovis/go-skytiles/pak"
	"github.com/astrovis/go-skytiles/pak/spec"
)

type infoCmd struct {
	inputFormat string
	inputPath   string
}

func (c *infoCmd) Name() string     { return "info" }
func (c *infoCmd) Synopsis() string { return "print pyramid store properties" }
func (c *infoCmd) Usage() string {
	return "skytiles info -i <path> [-if <format>]\n"
}

func (c *infoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbt, pak)")
}

func (c *infoCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	switch deduceFormat(c.inputFormat, c.inputPath) {
	case "pak":
		reader, err := pak.NewFileReader(c.inputPath)
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		defer reader.Close()

		metadata := reader.HeaderMetadata()
		fmt.Printf("format:    %v\n", formatName(metadata.Format))
		fmt.Printf("tile size: %v\n", metadata.TileSize)
		fmt.Printf("levels:    %v..%v\n", metadata.MinLevel, metadata.MaxLevel)

	case "mbt":
		reader, err := mbt.NewReader(c.inputPath)
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		defer reader.Close()

		metadata, err := reader.ReadMetadata()
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		for name, value := range metadata {
			fmt.Printf("%s: %s\n", name, value)
		}

	default:
		log.Printf("invalid input format: %q", c.inputFormat)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

func formatName(f spec.PixelFormat) string {
	switch f {
	case spec.PixelFormatRGBA8:
		return "rgba8"
	case spec.PixelFormatF32:
		return "f32"
	}
	return "unknown"
}
