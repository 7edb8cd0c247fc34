package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".heropicks"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for heropicks settings.
const envPrefix = "HEROPICKS"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment is present.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			TimeColumn:  DefaultTimeColumn,
			PicksColumn: DefaultPicksColumn,
			Delimiter:   DefaultDelimiter,
			LazyQuotes:  DefaultLazyQuotes,
		},
		Schedule:   ScheduleConfig{ReportEvery: DefaultReportEvery, CheckpointEvery: DefaultCheckpointEvery},
		Expect:     ExpectConfig{Rows: DefaultExpectedRows, Days: DefaultExpectedDays},
		Errors:     ErrorsConfig{OnBadRow: DefaultOnBadRow, OnBadPicks: DefaultOnBadPicks},
		Checkpoint: CheckpointConfig{Compress: DefaultCompress, Level: DefaultCompressionLevel},
		Export: ExportConfig{
			Since:       DefaultSince,
			KeepUnknown: DefaultKeepUnknown,
			HeroNames:   DefaultHeroNames,
			Top:         DefaultTop,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, JSON: DefaultLogJSON},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: DefaultOTLPEndpoint,
			OTLPInsecure: DefaultOTLPInsecure,
			SampleRatio:  DefaultSampleRatio,
			MetricsAddr:  DefaultMetricsAddr,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("input.time_column", DefaultTimeColumn)
	viperCfg.SetDefault("input.picks_column", DefaultPicksColumn)
	viperCfg.SetDefault("input.delimiter", DefaultDelimiter)
	viperCfg.SetDefault("input.lazy_quotes", DefaultLazyQuotes)

	viperCfg.SetDefault("schedule.report_every", DefaultReportEvery)
	viperCfg.SetDefault("schedule.checkpoint_every", DefaultCheckpointEvery)

	viperCfg.SetDefault("expect.rows", DefaultExpectedRows)
	viperCfg.SetDefault("expect.days", DefaultExpectedDays)

	viperCfg.SetDefault("errors.on_bad_row", DefaultOnBadRow)
	viperCfg.SetDefault("errors.on_bad_picks", DefaultOnBadPicks)

	viperCfg.SetDefault("checkpoint.compress", DefaultCompress)
	viperCfg.SetDefault("checkpoint.level", DefaultCompressionLevel)

	viperCfg.SetDefault("export.since", DefaultSince)
	viperCfg.SetDefault("export.keep_unknown", DefaultKeepUnknown)
	viperCfg.SetDefault("export.hero_names", DefaultHeroNames)
	viperCfg.SetDefault("export.top", DefaultTop)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.metrics_addr", DefaultMetricsAddr)
}
