package main

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

// fileConfig holds option defaults read from a TOML file, for example:
//
//	format = "json"
//	base_address = 0x140000000
//	color = "never"
type fileConfig struct {
	path string
	meta toml.MetaData

	Format      string `toml:"format"`
	BaseAddress uint64 `toml:"base_address"`
	Debug       bool   `toml:"debug"`
	Color       string `toml:"color"`
	Output      string `toml:"output"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{path: path}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	cfg.meta = meta
	return cfg, nil
}

// apply sets every flag the file defines unless it was given on the
// command line. Values go through the flag parsers, so the file is
// validated like the command line.
func (c *fileConfig) apply(flags *pflag.FlagSet) error {
	entries := []struct {
		key, flag, value string
	}{
		{"format", "format", c.Format},
		{"base_address", "base-address", strconv.FormatUint(c.BaseAddress, 10)},
		{"debug", "debug", strconv.FormatBool(c.Debug)},
		{"color", "color", c.Color},
		{"output", "output", c.Output},
	}
	for _, e := range entries {
		if !c.meta.IsDefined(e.key) || flags.Changed(e.flag) {
			continue
		}
		if err := flags.Set(e.flag, e.value); err != nil {
			return fmt.Errorf("%s: %s: %w", c.path, e.key, err)
		}
	}
	return nil
}
