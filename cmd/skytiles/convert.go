package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"

	"github.com/astrovis/go-skytiles/mbt"
	"github.com/astrovis/go-skytiles/pak"
	"github.com/astrovis/go-skytiles/pak/spec"
	"github.com/astrovis/go-skytiles/tile"
	"github.com/astrovis/go-skytiles/wwt"
)

type convertCmd struct {
	inputFormat  string
	inputPath    string
	inputExt     string
	outputFormat string
	outputPath   string
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between tile storage formats" }
func (c *convertCmd) Usage() string {
	return "skytiles convert -i <path> -o <path> [-if <format> | -of <format>]\n"
}

func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (wwt, mbt, pak)")
	f.StringVar(&c.inputExt, "ext", "png", "Tile file extension for wwt input")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (wwt, mbt, pak)")
}

// convertHeader derives pak header fields from a metadata table written
// by the build command.
func convertHeader(metadata map[string]string) pak.HeaderMetadata {
	header := pak.HeaderMetadata{}

	switch metadata["format"] {
	case "rgba8":
		header.Format = spec.PixelFormatRGBA8
	case "f32":
		header.Format = spec.PixelFormatF32
	}

	if sizeValue, found := metadata["tile_size"]; found {
		fmt.Sscanf(sizeValue, "%d", &header.TileSize)
	}
	if depthValue, found := metadata["depth"]; found {
		fmt.Sscanf(depthValue, "%d", &header.MaxLevel)
	}

	return header
}

func (c *convertCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	inputFormat := deduceFormat(c.inputFormat, c.inputPath)
	outputFormat := deduceFormat(c.outputFormat, c.outputPath)

	var err error
	var reader tile.Visitor
	switch inputFormat {
	case "wwt":
		reader, err = wwt.NewReader(wwt.Pattern(c.inputPath, c.inputExt))
	case "mbt":
		reader, err = mbt.NewReader(c.inputPath)
	case "pak":
		reader, err = pak.NewFileReader(c.inputPath)
	default:
		log.Printf("invalid input format: %q", c.inputFormat)
		return subcommands.ExitFailure
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	var pakHeader pak.HeaderMetadata
	var outputExt string
	switch input := reader.(type) {
	case *mbt.Reader:
		metadata, err := input.ReadMetadata()
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		pakHeader = convertHeader(metadata)
	case pak.Reader:
		pakHeader = input.HeaderMetadata()
	}
	outputExt = "png"
	if pakHeader.Format == spec.PixelFormatF32 {
		outputExt = "skt"
	}
	if inputFormat == "wwt" && c.inputExt == "skt" {
		outputExt = "skt"
	}

	var writer tile.Writer
	switch outputFormat {
	case "wwt":
		writer, err = wwt.NewWriter(wwt.Pattern(c.outputPath, outputExt))
	case "mbt":
		writer, err = mbt.NewWriter(c.outputPath)
	case "pak":
		writer, err = pak.NewWriterParams(c.outputPath, pak.WriterParams{
			HeaderMetadata: pakHeader,
		})
	default:
		log.Printf("invalid output format: %q", c.outputFormat)
		return subcommands.ExitFailure
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := writer.(io.Closer); ok {
		defer closer.Close()
	}

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	err = reader.VisitTiles(func(pos tile.Pos, tileData []byte) error {
		err := writer.WriteTile(pos, tileData)
		bar.Add(1)
		return err
	})
	bar.Finish()
	fmt.Println()

	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	if err := writer.Finalize(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
