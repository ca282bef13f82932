// Package cmd implements the datpeek command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/datpeek/internal/capability"
	"github.com/MeKo-Tech/datpeek/internal/config"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/dispatch"
	"github.com/MeKo-Tech/datpeek/internal/formats"
	"github.com/MeKo-Tech/datpeek/internal/palette"
	"github.com/MeKo-Tech/datpeek/internal/registry"
	"github.com/MeKo-Tech/datpeek/internal/stream"
	"github.com/MeKo-Tech/datpeek/internal/version"
)

// viperKey is the flag annotation naming the config key a flag overrides.
const viperKey = "datpeek_viper_key"

// app is the state shared by one command tree: its viper instance, the
// loaded configuration and the logger built from it.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// Execute runs the datpeek command line with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds a fresh command tree. Each tree owns its own viper
// instance so it can be executed repeatedly in one process.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "datpeek",
		Short: "Identify and preview files extracted from game archives",
		Long: `datpeek inspects loose entries extracted from game data archives, picks the
best decoder for each one by extension, container and magic bytes, and turns
it into a previewable image, text or playable media stream.

Examples:
  datpeek identify hero.spr --container sprite-pak
  datpeek decode hero.spr --palette game.pal --output-dir previews/
  datpeek scan extracted/ --format json --output report.json
  datpeek formats`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return nil
			}
			return cmd.Help()
		},
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/datpeek, /etc/datpeek)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("container", "", "archive container the entries came from (e.g. sprite-pak)")
	pf.String("palette", "", "palette file for palette-indexed formats (RIFF PAL, JASC-PAL, raw RGB)")
	pf.StringSlice("disable", nil, "decoder IDs to disable")
	pf.StringSlice("force-capability", nil, "treat these media capabilities as available (audio, midi, video)")
	pf.Bool("version", false, "print version information and exit")
	bind(pf, "verbose", "verbose")
	bind(pf, "log-level", "log_level")
	bind(pf, "container", "container")
	bind(pf, "palette", "palette_file")
	bind(pf, "disable", "decoders.disabled")
	bind(pf, "force-capability", "player.force")

	root.AddCommand(
		newIdentifyCommand(a),
		newDecodeCommand(a),
		newScanCommand(a),
		newFormatsCommand(a),
		newConfigCommand(a),
	)
	return root
}

// bind marks a flag as overriding a config key. The binding happens in
// setup, once the executing command's flag set is known.
func bind(fs *pflag.FlagSet, name, key string) {
	_ = fs.SetAnnotation(name, viperKey, []string{key})
}

// setup binds the executing command's flags into viper, loads the
// configuration and installs the structured logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys := f.Annotations[viperKey]; len(keys) > 0 {
			bindErr = errors.Join(bindErr, a.v.BindPFlag(keys[0], f))
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfg, err := config.NewLoaderWith(a.v).LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(a.logger)
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("configuration loaded", "file", used)
	}
	return nil
}

// newLogger writes JSON logs to w; stdout is reserved for reports.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// registry builds the decoder registry from the configuration, probing the
// host for media players once.
func (a *app) registry() (*registry.Registry, error) {
	caps := capability.Probe(a.cfg.ProbeOptions(a.logger))
	a.logger.Debug("capabilities probed", "available", caps.String())
	return registry.New(caps, a.cfg.Decoders.Disabled, formats.All(a.cfg.FormatOptions(a.logger))...)
}

func (a *app) dispatcher() (*dispatch.Dispatcher, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	return dispatch.New(reg, a.logger), nil
}

// decoderContext assembles the archive side channel: container and palette.
func (a *app) decoderContext() (decoder.Context, error) {
	ctx := decoder.Context{Container: decoder.Container(a.cfg.Container)}
	if a.cfg.PaletteFile != "" {
		pal, err := palette.Load(a.cfg.PaletteFile)
		if err != nil {
			return ctx, fmt.Errorf("load palette: %w", err)
		}
		ctx.Palette = pal
	}
	return ctx, nil
}

// openStream opens path as a stream named after its base name. The caller
// closes the returned file.
func openStream(path string) (*stream.Stream, *os.File, error) {
	f, err := os.Open(path) //nolint:gosec // G304: user-supplied input path
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s is a directory (use scan)", path)
	}
	s, err := stream.New(f, info.Size(), filepath.Base(path))
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return s, f, nil
}
