package config

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/Sumatoshi-tech/heropicks/pkg/checkpoint"
	"github.com/Sumatoshi-tech/heropicks/pkg/condense"
	"github.com/Sumatoshi-tech/heropicks/pkg/epochday"
	"github.com/Sumatoshi-tech/heropicks/pkg/matchrow"
)

// Sentinel validation errors.
var (
	ErrInvalidDelimiter   = errors.New("delimiter must be a single character other than quote, CR or LF")
	ErrInvalidExpectation = errors.New("expected rows and days must be positive")
	ErrInvalidSince       = errors.New("export.since must be YYYY-MM-DD or a day ordinal")
	ErrInvalidTop         = errors.New("export.top must not be negative")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be within [0, 1]")
)

// Config holds all heropicks settings.
type Config struct {
	Input      InputConfig      `mapstructure:"input"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Expect     ExpectConfig     `mapstructure:"expect"`
	Errors     ErrorsConfig     `mapstructure:"errors"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Export     ExportConfig     `mapstructure:"export"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// InputConfig describes the CSV dump.
type InputConfig struct {
	TimeColumn  int    `mapstructure:"time_column"`
	PicksColumn int    `mapstructure:"picks_column"`
	Delimiter   string `mapstructure:"delimiter"`
	LazyQuotes  bool   `mapstructure:"lazy_quotes"`
}

// ScheduleConfig sets the report and checkpoint cadence in rows.
type ScheduleConfig struct {
	ReportEvery     uint64 `mapstructure:"report_every"`
	CheckpointEvery uint64 `mapstructure:"checkpoint_every"`
}

// ExpectConfig sizes the progress extrapolation.
type ExpectConfig struct {
	Rows uint64 `mapstructure:"rows"`
	Days int    `mapstructure:"days"`
}

// ErrorsConfig holds the malformed-input policies.
type ErrorsConfig struct {
	OnBadRow   string `mapstructure:"on_bad_row"`
	OnBadPicks string `mapstructure:"on_bad_picks"`
}

// CheckpointConfig controls checkpoint encoding. Level is the LZ4 level,
// 0 (fast) through 9.
type CheckpointConfig struct {
	Compress bool `mapstructure:"compress"`
	Level    int  `mapstructure:"level"`
}

// ExportConfig holds defaults for the export command.
type ExportConfig struct {
	Since       string `mapstructure:"since"`
	KeepUnknown bool   `mapstructure:"keep_unknown"`
	HeroNames   string `mapstructure:"hero_names"`
	Top         int    `mapstructure:"top"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig controls OpenTelemetry export and the Prometheus endpoint.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	err := c.Input.Columns().Validate()
	if err != nil {
		return err
	}

	_, err = c.Input.Rune()
	if err != nil {
		return err
	}

	err = c.Schedule.Cadence().Validate()
	if err != nil {
		return err
	}

	if c.Expect.Rows == 0 || c.Expect.Days <= 0 {
		return fmt.Errorf("%w: rows=%d days=%d", ErrInvalidExpectation, c.Expect.Rows, c.Expect.Days)
	}

	_, err = condense.ParsePolicy(c.Errors.OnBadRow)
	if err != nil {
		return fmt.Errorf("errors.on_bad_row: %w", err)
	}

	_, err = condense.ParsePolicy(c.Errors.OnBadPicks)
	if err != nil {
		return fmt.Errorf("errors.on_bad_picks: %w", err)
	}

	_, err = checkpoint.CompressionLevel(c.Checkpoint.Level)
	if err != nil {
		return fmt.Errorf("checkpoint.level: %w", err)
	}

	return c.validateOutputs()
}

func (c *Config) validateOutputs() error {
	_, _, err := c.Export.SinceDay()
	if err != nil {
		return err
	}

	if c.Export.Top < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTop, c.Export.Top)
	}

	_, err = c.Logging.SlogLevel()
	if err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// Columns returns the decoder layout.
func (ic InputConfig) Columns() matchrow.Columns {
	return matchrow.Columns{Time: ic.TimeColumn, Picks: ic.PicksColumn}
}

// Rune returns the delimiter as a rune.
func (ic InputConfig) Rune() (rune, error) {
	r, size := utf8.DecodeRuneInString(ic.Delimiter)
	if size == 0 || size != len(ic.Delimiter) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelimiter, ic.Delimiter)
	}

	return r, nil
}

// Cadence converts the section to a condense.Schedule.
func (sc ScheduleConfig) Cadence() condense.Schedule {
	return condense.Schedule{ReportEvery: sc.ReportEvery, CheckpointEvery: sc.CheckpointEvery}
}

// Expectations converts the section to condense.Expectations.
func (ec ExpectConfig) Expectations() condense.Expectations {
	return condense.Expectations{Rows: ec.Rows, Days: ec.Days}
}

// SinceDay parses Since. ok is false when it is empty.
func (ec ExportConfig) SinceDay() (day epochday.Day, ok bool, err error) {
	if ec.Since == "" {
		return 0, false, nil
	}

	day, err = epochday.Parse(ec.Since)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrInvalidSince, err)
	}

	return day, true, nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error", optionally with an offset like "info+2").
func (lc LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(lc.Level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, lc.Level)
	}

	return level, nil
}
