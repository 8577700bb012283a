// Command oxy-bounds opens the sphere viewer: a scene of spheres over a floor grid, overlaid with the
// screen-space bounds, long axes and occluder circles the GPU computes for each sphere.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Carmen-Shannon/oxy-bounds/engine"
	"github.com/Carmen-Shannon/oxy-bounds/engine/config"
	"github.com/spf13/cobra"
)

func init() {
	// GLFW and the surface must stay on the main thread.
	runtime.LockOSThread()
}

type options struct {
	configPath string
	logLevel   string
	profile    bool
	vsync      bool
	watch      bool
	fpsLimit   float64
	dumpConfig bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "oxy-bounds",
		Short:         "Interactive viewer for GPU-projected sphere bounds",
		Long:          "Draws spheres over a floor grid with the screen-space bounds, long axes and occluder circles\ncomputed for them on the GPU.\n\nMouse: right drag orbits, middle drag sidles, wheel dollies.\nKeys: B/L/C log readbacks, R reloads the config, P toggles the profiler, Esc quits.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "scene config file (TOML)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config)")
	flags.BoolVar(&opts.profile, "profile", false, "log frame statistics")
	flags.BoolVar(&opts.vsync, "vsync", false, "wait for vertical blank when presenting")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "apply edits to the config file while running")
	flags.Float64Var(&opts.fpsLimit, "fps-limit", 0, "cap the frame rate (0 = uncapped)")
	flags.BoolVar(&opts.dumpConfig, "dump-config", false, "print the effective config as TOML and exit")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	level := &slog.LevelVar{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}
	level.Set(cfg.LogLevel())

	if opts.dumpConfig {
		data, err := cfg.Marshal()
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if opts.watch && opts.configPath == "" {
		logger.Warn("--watch needs --config, not watching")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.NewEngine(ctx, cfg,
		engine.WithLogger(logger),
		engine.WithLogLevel(level),
		engine.WithConfigPath(opts.configPath),
		engine.WithWatch(opts.watch),
		engine.WithRenderFrameLimit(opts.fpsLimit),
	)
	if err != nil {
		logger.Error("failed to start viewer", "error", err)
		return err
	}

	go func() {
		<-ctx.Done()
		eng.Quit()
	}()
	if err = eng.Run(); err != nil {
		logger.Error("viewer stopped", "error", err)
		return err
	}
	return nil
}

// loadConfig reads the config file, or the defaults without one, then applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		if _, err := config.ParseLevel(opts.logLevel); err != nil {
			return config.Config{}, err
		}
		cfg.Debug.LogLevel = opts.logLevel
	}
	if flags.Changed("profile") {
		cfg.Debug.Profile = opts.profile
	}
	if flags.Changed("vsync") {
		cfg.Window.VSync = opts.vsync
	}
	return cfg, nil
}
