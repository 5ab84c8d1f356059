package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/apphost"
	"github.com/bft-labs/apphost/internal/cliconfig"
	"github.com/bft-labs/apphost/internal/procapp"
	"github.com/bft-labs/apphost/pkg/environment"
	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/lifecycle"
	"github.com/bft-labs/apphost/pkg/settings"
	"github.com/bft-labs/apphost/plugins/resourcegating"
	"github.com/bft-labs/apphost/plugins/statenotifier"
	"github.com/bft-labs/apphost/plugins/statusserver"
)

const helpDescription = `
Run a process under a managed lifecycle.

apphost builds an environment for the process (logging, settings, tracing,
metrics, service discovery registration), runs it, and stops it gracefully
on SIGINT/SIGTERM within a bounded shutdown timeout.

Highlights:
  - Registers the instance in a service directory only while it is running.
  - Exposes status, liveness, readiness and Prometheus metrics over HTTP.
  - Publishes lifecycle changes as CloudEvents to a webhook.
  - Configure via file, env (APPHOST_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  apphost run --application api --status-addr :9090 -- ./api --port 8080
  apphost run --config $HOME/.apphost/config.toml --shutdown-timeout 1m -- ./worker
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:          "apphost",
		Short:        "Run a process under a managed lifecycle",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
	}
	root.AddCommand(newRunCommand(log), newVersionCommand())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("apphost")
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print module versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "apphost %s %s/%s\n", getVersion(), runtime.GOOS, runtime.GOARCH)

			versions := apphost.ModuleVersions()
			names := make([]string, 0, len(versions))
			for name := range versions {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %-12s %s\n", name, versions[name])
			}
		},
	}
}

func newRunCommand(log zerolog.Logger) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command under the application host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.apphost/config.toml), then apply overrides
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Apply environment variables (APPHOST_*)
			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if cfg.Application == "" {
				cfg.Application = filepath.Base(args[0])
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			// Log configuration (masking API key)
			logCfg := cfg
			if len(logCfg.AuthKey) > 0 {
				logCfg.AuthKey = "*****"
			}
			log.Debug().Interface("config", logCfg).Msg("configuration")

			status, err := runHost(cmd.Context(), cfg, args, log)
			if err != nil {
				return err
			}
			if status == lifecycle.ApplicationCrashed {
				os.Exit(1)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.apphost/config.toml)")

	f.StringVar(&cfg.Project, "project", cfg.Project, "project the application belongs to")
	f.StringVar(&cfg.Subproject, "subproject", cfg.Subproject, "optional subproject")
	f.StringVar(&cfg.Environment, "environment", cfg.Environment, "deployment environment")
	f.StringVar(&cfg.Application, "application", cfg.Application, "application name (defaults to the command's base name)")
	f.StringVar(&cfg.Instance, "instance", cfg.Instance, "instance name (defaults to the hostname)")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "grace period for a requested stop")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write JSON logs to this file")
	f.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "write JSON instead of console logs to stderr")

	f.StringVar(&cfg.DirectoryURL, "directory-url", cfg.DirectoryURL, "service directory base URL (empty disables registration)")
	f.StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key for the service directory and webhook")
	f.StringVar(&cfg.Address, "address", cfg.Address, "address advertised in the service directory")
	f.DurationVar(&cfg.RenewInterval, "renew-interval", cfg.RenewInterval, "service directory registration renew interval")
	f.Float64Var(&cfg.CPUThreshold, "cpu-threshold", cfg.CPUThreshold, "withdraw registration while CPU usage stays above this fraction (0 disables)")

	f.StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "listen address for the status server (empty disables it)")
	f.StringVar(&cfg.NotifyURL, "notify-url", cfg.NotifyURL, "webhook receiving lifecycle CloudEvents (empty disables it)")

	f.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP gRPC collector address (empty disables tracing)")
	f.BoolVar(&cfg.OTLPInsecure, "otlp-insecure", cfg.OTLPInsecure, "connect to the collector without TLS")
	f.Float64Var(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "fraction of traces sampled, 0 disables sampling")

	f.StringSliceVar(&cfg.SettingsFiles, "settings", cfg.SettingsFiles, "settings files (toml, yaml or json), later files win; exported as APPHOST_SETTINGS__* and APPHOST_SETTINGS_FILE")
	f.StringSliceVar(&cfg.SecretFiles, "secrets", cfg.SecretFiles, "secret files (toml, yaml or json), later files win; exported as APPHOST_SECRETS__*")
	f.StringVar(&cfg.SettingsEnvPrefix, "settings-env-prefix", cfg.SettingsEnvPrefix, "environment prefix layered over settings files")
	f.BoolVar(&cfg.WatchSettings, "watch-settings", cfg.WatchSettings, "reload settings files when they change")

	f.StringVar(&cfg.InitCommand, "init", cfg.InitCommand, "shell command (sh -c) run to completion before the application starts")
	f.StringVar(&cfg.WorkDir, "work-dir", cfg.WorkDir, "working directory for the application")
	f.DurationVar(&cfg.KillDelay, "kill-delay", cfg.KillDelay, "kill the process this long after the stop signal (0 waits for the shutdown timeout)")

	return cmd
}

// runHost builds the host for cfg and runs command under it until it
// finishes or a termination signal stops it.
func runHost(ctx context.Context, cfg cliconfig.Config, command []string, log zerolog.Logger) (lifecycle.RunStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := procapp.New(procapp.Config{
		Command:     command,
		InitCommand: cfg.InitArgs(),
		Dir:         cfg.WorkDir,
		KillDelay:   cfg.KillDelay,
	})
	if err != nil {
		return lifecycle.ApplicationCrashed, err
	}

	setup := environment.Setup{
		Identity: host.Identity{
			Project:     cfg.Project,
			Subproject:  cfg.Subproject,
			Environment: cfg.Environment,
			Application: cfg.Application,
			Instance:    cfg.Instance,
		},
		Logging: environment.LoggingSetup{
			Level:       cfg.LogLevel,
			ConsoleJSON: cfg.LogJSON,
			File:        cfg.LogFile,
		},
		Beacon: environment.BeaconSetup{
			DirectoryURL:  cfg.DirectoryURL,
			AuthKey:       cfg.AuthKey,
			Address:       cfg.Address,
			RenewInterval: cfg.RenewInterval,
		},
		Settings: environment.SettingsSetup{
			Sources:       settingsSources(cfg.SettingsFiles, cfg.SettingsEnvPrefix),
			SecretSources: settingsSources(cfg.SecretFiles, ""),
			Watch:         cfg.WatchSettings,
		},
		Telemetry: environment.TelemetrySetup{
			Endpoint:       cfg.OTLPEndpoint,
			Insecure:       cfg.OTLPInsecure,
			SampleRate:     &cfg.SampleRate,
			ServiceVersion: getVersion(),
			SetGlobal:      true,
		},
	}

	var opts []host.Option
	if cfg.CPUThreshold > 0 && cfg.DirectoryURL != "" {
		rc := resourcegating.DefaultConfig()
		rc.CPUThreshold = cfg.CPUThreshold
		gate := resourcegating.New(rc)
		setup.Beacon.Gate = gate
		opts = append(opts, resourcegating.WithResourceGating(gate))
	}
	if cfg.StatusAddr != "" {
		sc := statusserver.DefaultConfig()
		sc.Addr = cfg.StatusAddr
		opts = append(opts, statusserver.WithStatusServer(sc))
	}
	if cfg.NotifyURL != "" {
		opts = append(opts, statenotifier.WithStateNotifier(statenotifier.Config{
			URL:     cfg.NotifyURL,
			AuthKey: cfg.AuthKey,
		}))
	}

	h, err := host.New(host.Settings{
		Application:        app,
		EnvironmentFactory: environment.Factory(setup),
		ShutdownTimeout:    cfg.ShutdownTimeout,
	}, opts...)
	if err != nil {
		return lifecycle.ApplicationCrashed, fmt.Errorf("create host: %w", err)
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case sig := <-sigCh:
				log.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
				h.Shutdown()
			case <-done:
				return
			}
		}
	}()

	result, err := h.Run(ctx)
	if err != nil {
		return lifecycle.ApplicationCrashed, err
	}
	if result.Status == lifecycle.ApplicationCrashed {
		log.Error().Err(result.Error).Msg("application crashed")
	}
	return result.Status, nil
}

func settingsSources(files []string, envPrefix string) []settings.Source {
	var sources []settings.Source
	for _, path := range files {
		sources = append(sources, settings.File(path))
	}
	if envPrefix != "" {
		sources = append(sources, settings.Env(envPrefix))
	}
	return sources
}
