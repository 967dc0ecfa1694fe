package config

import "time"

// Application constants
const (
	AppName    = "wbbcli"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment override (WBB_PROCESSING_WINDOW_SIZE, ...)
	EnvPrefix = "WBB"
)

// Processing defaults, matching the settings the recordings were tuned for
const (
	DefaultWindowSize       = 1.0
	DefaultDesiredFrequency = 25.0
	DefaultMaxDepth         = 1
	DefaultTrimMode         = "none"
	DefaultFormat           = "csv"
	DefaultErrorLog         = "errors.txt"
)

// Error log layout
const (
	ErrorLogHeader = "Files that encountered errors:"
)

// Server defaults
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRateLimitRPS    = 10
	DefaultRateLimitBurst  = 20
)

// Logging defaults
const (
	DefaultLogLevel  = "info"
	DefaultLogOutput = "both"
	DefaultLogFile   = "logs/wbbcli.log"
)
