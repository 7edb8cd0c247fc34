// Package config loads heropicks settings from .heropicks.yaml, HEROPICKS_*
// environment variables and built-in defaults.
package config

import (
	"github.com/Sumatoshi-tech/heropicks/pkg/condense"
	"github.com/Sumatoshi-tech/heropicks/pkg/matchrow"
)

// Input defaults.
const (
	DefaultTimeColumn  = matchrow.DefaultTimeColumn
	DefaultPicksColumn = matchrow.DefaultPicksColumn
	DefaultDelimiter   = ","
	DefaultLazyQuotes  = false
)

// Schedule and expectation defaults.
const (
	DefaultReportEvery     = condense.DefaultReportEvery
	DefaultCheckpointEvery = condense.DefaultCheckpointEvery
	DefaultExpectedRows    = condense.DefaultExpectedRows
	DefaultExpectedDays    = condense.DefaultExpectedDays
)

// Error policy defaults.
const (
	DefaultOnBadRow   = string(condense.PolicyFail)
	DefaultOnBadPicks = string(condense.PolicySkip)
)

// Checkpoint defaults.
const (
	DefaultCompress         = true
	DefaultCompressionLevel = 0
)

// Export defaults.
const (
	DefaultSince       = ""
	DefaultKeepUnknown = false
	DefaultHeroNames   = ""
	DefaultTop         = 0
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 1.0
	DefaultMetricsAddr  = ""
)
