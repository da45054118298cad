package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/pdbview/pdb"
)

type options struct {
	format      outputFormat
	baseAddress uint64
	debug       bool
	output      string
	config      string
	color       colorMode
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pdbview <pdb-file>",
		Short: "PDB file viewer",
		Long: `pdbview dumps the types, procedures, globals, public symbols and
compiler information stored in a Microsoft PDB (Program Database) file.

Output is a plain text report, JSON or msgpack.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.config == "" {
				return nil
			}
			cfg, err := loadConfig(opts.config)
			if err != nil {
				return err
			}
			return cfg.apply(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.VarP(&opts.format, "format", "f", "output format (plain, json, msgpack)")
	flags.Uint64VarP(&opts.baseAddress, "base-address", "b", 0, "base address added to every offset, decimal or 0x hex")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "log debug information to stderr")
	flags.StringVarP(&opts.output, "output", "o", "", "write output to file instead of stdout")
	flags.StringVar(&opts.config, "config", "", "read option defaults from a TOML file")
	flags.Var(&opts.color, "color", "colorize plain output (auto, always, never)")
	return cmd
}

func run(cmd *cobra.Command, opts *options, path string) (err error) {
	level := slog.LevelWarn
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	parsed, err := pdb.Parse(cmd.Context(), path, pdb.Options{
		BaseAddress: opts.baseAddress,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to parse PDB: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		out = f
	}

	switch opts.format {
	case formatJSON:
		return writeJSON(out, parsed)
	case formatMsgpack:
		return writeMsgpack(out, parsed)
	default:
		return writePlain(out, parsed, newPalette(opts.color, out))
	}
}
