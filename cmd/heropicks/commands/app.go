// Package commands implements CLI command handlers for heropicks.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/heropicks/pkg/config"
	"github.com/Sumatoshi-tech/heropicks/pkg/observability"
	"github.com/Sumatoshi-tech/heropicks/pkg/version"
)

// app carries the persistent flags and the loaded configuration to every command.
type app struct {
	configPath   string
	logLevel     string
	logJSON      bool
	otlpEndpoint string
	noColor      bool
	quiet        bool

	cfg *config.Config
}

func (a *app) bindPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: .heropicks.yaml in . or $HOME)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&a.logJSON, "log-json", false, "Emit logs as JSON")
	flags.StringVar(&a.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC collector address (enables tracing and metrics export)")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress progress and status output")
}

// load reads the configuration and applies persistent flag overrides.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return usageError(err)
	}

	flags := cmd.Flags()

	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}

	if flags.Changed("log-json") {
		cfg.Logging.JSON = a.logJSON
	}

	if flags.Changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint = a.otlpEndpoint
	}

	_, err = cfg.Logging.SlogLevel()
	if err != nil {
		return usageError(err)
	}

	if a.noColor {
		color.NoColor = true
	}

	a.cfg = cfg

	return nil
}

// observe initializes telemetry for one command. Logs go to logOut.
func (a *app) observe(mode string, prometheus bool, logOut io.Writer) (observability.Providers, error) {
	level, err := a.cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	ocfg := observability.DefaultConfig()
	ocfg.ServiceVersion = version.Version
	ocfg.Mode = observability.AppMode(mode)
	ocfg.OTLPEndpoint = a.cfg.Telemetry.OTLPEndpoint
	ocfg.OTLPInsecure = a.cfg.Telemetry.OTLPInsecure
	ocfg.OTLPHeaders = observability.ParseOTLPHeaders(a.cfg.Telemetry.OTLPHeaders)
	ocfg.SampleRatio = a.cfg.Telemetry.SampleRatio
	ocfg.Prometheus = prometheus
	ocfg.LogLevel = level
	ocfg.LogJSON = a.cfg.Logging.JSON
	ocfg.LogWriter = logOut

	providers, err := observability.Init(ocfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

// shutdown flushes telemetry, logging rather than returning a failure.
func shutdown(providers observability.Providers) {
	err := providers.Shutdown(context.Background())
	if err != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

// statusf prints a colored status line unless --quiet is set.
func (a *app) statusf(w io.Writer, attr color.Attribute, format string, args ...any) {
	if a.quiet {
		return
	}

	_, _ = color.New(attr).Fprintf(w, format+"\n", args...)
}
