package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Profile collects every build setting. Flags fill it first; a TOML
// profile, when given, overrides the flag values.
type Profile struct {
	Source struct {
		Path   string `mapstructure:"path"`
		Kind   string `mapstructure:"kind"`   // image | healpix
		Frame  string `mapstructure:"frame"`  // equatorial | galactic
		Order  string `mapstructure:"order"`  // ring | nested
		Method string `mapstructure:"method"` // nearest | bilinear
	} `mapstructure:"source"`
	Output struct {
		Path   string `mapstructure:"path"`
		Format string `mapstructure:"format"` // wwt | mbt | pak
	} `mapstructure:"output"`
	Build struct {
		Depth      uint32 `mapstructure:"depth"`
		TileSize   int    `mapstructure:"tile_size"`
		Workers    int    `mapstructure:"workers"`
		BottomOnly bool   `mapstructure:"bottom_only"`
		TopLevel   uint32 `mapstructure:"top_level"`
		Region     string `mapstructure:"region"`
	} `mapstructure:"build"`
}

func loadProfile(cfgFile string, p *Profile) error {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(cfgFile)
	v.AutomaticEnv()

	v.SetDefault("source.path", p.Source.Path)
	v.SetDefault("source.kind", p.Source.Kind)
	v.SetDefault("source.frame", p.Source.Frame)
	v.SetDefault("source.order", p.Source.Order)
	v.SetDefault("source.method", p.Source.Method)
	v.SetDefault("output.path", p.Output.Path)
	v.SetDefault("output.format", p.Output.Format)
	v.SetDefault("build.depth", p.Build.Depth)
	v.SetDefault("build.tile_size", p.Build.TileSize)
	v.SetDefault("build.workers", p.Build.Workers)
	v.SetDefault("build.bottom_only", p.Build.BottomOnly)
	v.SetDefault("build.top_level", p.Build.TopLevel)
	v.SetDefault("build.region", p.Build.Region)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading profile %s: %w", cfgFile, err)
	}
	if err := v.Unmarshal(p); err != nil {
		return fmt.Errorf("parsing profile %s: %w", cfgFile, err)
	}
	return nil
}
