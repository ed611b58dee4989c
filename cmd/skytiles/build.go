package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"

	"github.com/astrovis/go-skytiles/healpix"
	"github.com/astrovis/go-skytiles/mbt"
	"github.com/astrovis/go-skytiles/pak"
	"github.com/astrovis/go-skytiles/pak/spec"
	"github.com/astrovis/go-skytiles/pixel"
	"github.com/astrovis/go-skytiles/pyramid"
	"github.com/astrovis/go-skytiles/region"
	"github.com/astrovis/go-skytiles/sampler"
	"github.com/astrovis/go-skytiles/tile"
	"github.com/astrovis/go-skytiles/wwt"
)

type buildCmd struct {
	profilePath string
	verbose     bool
	profile     Profile
}

func (c *buildCmd) Name() string     { return "build" }
func (c *buildCmd) Synopsis() string { return "build a TOAST tile pyramid from an all-sky source" }
func (c *buildCmd) Usage() string {
	return "skytiles build -i <source> -o <output> -depth <n> [-c <profile.toml>] [flags]\n"
}

func (c *buildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.profilePath, "c", "", "TOML profile (overrides other flags)")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")

	f.StringVar(&c.profile.Source.Path, "i", "", "Source path")
	f.StringVar(&c.profile.Source.Kind, "kind", "image", "Source kind (image, healpix)")
	f.StringVar(&c.profile.Source.Frame, "frame", "equatorial", "HEALPix map frame (equatorial, galactic)")
	f.StringVar(&c.profile.Source.Order, "order", "ring", "HEALPix pixel order (ring, nested)")
	f.StringVar(&c.profile.Source.Method, "method", "nearest", "Sampling method (nearest, bilinear)")
	f.StringVar(&c.profile.Output.Path, "o", "", "Output path")
	f.StringVar(&c.profile.Output.Format, "of", "", "Output format (wwt, mbt, pak)")
	f.Func("depth", "Deepest pyramid level", func(s string) error {
		_, err := fmt.Sscanf(s, "%d", &c.profile.Build.Depth)
		return err
	})
	f.IntVar(&c.profile.Build.TileSize, "tile-size", 256, "Tile side length")
	f.IntVar(&c.profile.Build.Workers, "workers", 0, "Worker count (0 = all CPUs)")
	f.BoolVar(&c.profile.Build.BottomOnly, "bottom-only", false, "Produce only the deepest level")
	f.Func("top-level", "Shallowest level to produce", func(s string) error {
		_, err := fmt.Sscanf(s, "%d", &c.profile.Build.TopLevel)
		return err
	})
	f.StringVar(&c.profile.Build.Region, "region", "", "GeoJSON region restricting the build")
}

func (c *buildCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.profilePath != "" {
		if err := loadProfile(c.profilePath, &c.profile); err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
	}

	s, err := makeSampler(&c.profile)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	config := pyramid.Config{
		Depth:      c.profile.Build.Depth,
		TileSize:   c.profile.Build.TileSize,
		Workers:    c.profile.Build.Workers,
		BottomOnly: c.profile.Build.BottomOnly,
		TopLevel:   c.profile.Build.TopLevel,
	}
	if c.profile.Build.Region != "" {
		reg, err := region.Load(c.profile.Build.Region)
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		config.Filter = reg.Filter()
	}

	store, err := makeWriter(&c.profile, s.Format())
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	bar := progressbar.NewOptions64(int64(config.TotalTiles()),
		progressbar.OptionShowIts(), progressbar.OptionShowCount())

	builder, err := pyramid.NewBuilder(config,
		pyramid.WithLogger(logger),
		pyramid.WithProgress(func(produced, _ uint64) {
			bar.Set64(int64(produced))
		}))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	report, err := builder.Build(ctx, s, store)
	bar.Finish()
	fmt.Println()

	if err != nil {
		log.Println(err)
		if report != nil {
			for _, pos := range report.Failed {
				logger.Error("skytiles: tile failed", "pos", pos)
			}
		}
		return subcommands.ExitFailure
	}

	if err := store.Finalize(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	logger.Info("skytiles: build complete", "tiles", report.Produced)
	return subcommands.ExitSuccess
}

func makeSampler(p *Profile) (sampler.Sampler, error) {
	switch p.Source.Kind {
	case "image", "":
		file, err := os.Open(p.Source.Path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		img, _, err := image.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", p.Source.Path, err)
		}

		src := sampler.NewMemoryImage(img)
		bounds := src.Bounds()
		tr := sampler.PlateCarree{Width: bounds.W(), Height: bounds.H()}

		method := sampler.Nearest
		if p.Source.Method == "bilinear" {
			method = sampler.Bilinear
		}
		return sampler.NewGrid(src, tr, sampler.WithMethod(method)), nil

	case "healpix":
		data, err := readHealpixMap(p.Source.Path)
		if err != nil {
			return nil, err
		}
		order := healpix.Ring
		if p.Source.Order == "nested" {
			order = healpix.Nested
		}
		frame := sampler.Equatorial
		if p.Source.Frame == "galactic" {
			frame = sampler.Galactic
		}
		return sampler.NewHealpix(data, order, frame)

	default:
		return nil, fmt.Errorf("invalid source kind: %q", p.Source.Kind)
	}
}

// readHealpixMap reads a raw little-endian float32 HEALPix map.
func readHealpixMap(path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("map %s is not a float32 array", path)
	}
	data := make([]float32, len(raw)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return data, nil
}

func makeWriter(p *Profile, format pixel.Format) (tile.Writer, error) {
	switch deduceFormat(p.Output.Format, p.Output.Path) {
	case "wwt":
		ext := "png"
		if format == pixel.FormatF32 {
			ext = "skt"
		}
		return wwt.NewWriter(wwt.Pattern(p.Output.Path, ext))

	case "mbt":
		return mbt.NewWriter(p.Output.Path, mbt.WithMetadata(map[string]string{
			"format":    format.String(),
			"tile_size": fmt.Sprintf("%d", p.Build.TileSize),
			"depth":     fmt.Sprintf("%d", p.Build.Depth),
		}))

	case "pak":
		return pak.NewWriterParams(p.Output.Path, pak.WriterParams{
			HeaderMetadata: pak.HeaderMetadata{
				Format:   pakFormat(format),
				TileSize: uint32(p.Build.TileSize),
			},
		})

	default:
		return nil, fmt.Errorf("invalid output format: %q", p.Output.Format)
	}
}

func pakFormat(format pixel.Format) spec.PixelFormat {
	switch format {
	case pixel.FormatRGBA8:
		return spec.PixelFormatRGBA8
	case pixel.FormatF32:
		return spec.PixelFormatF32
	}
	return spec.PixelFormatUnknown
}
