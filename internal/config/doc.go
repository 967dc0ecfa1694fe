// Package config provides configuration loading for the resampler CLI and server.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// Command-line flags are applied by the binaries on top of the loaded value.
//
// # Environment Variables
//
// All environment variables follow the pattern WBB_* for namespacing:
//
//	WBB_PROCESSING_WINDOW_SIZE=1
//	WBB_PROCESSING_DESIRED_FREQUENCY=25
//	WBB_PROCESSING_TRIM_MODE=head-tail
//	WBB_SERVER_PORT=8080
//	WBB_LOGGING_LEVEL=debug
//
// # Configuration File
//
// When no path is given, config.yaml and configs/config.yaml are tried:
//
//	processing:
//	  window_size: 1
//	  desired_frequency: 25
//	  max_depth: 1
//	  trim:
//	    mode: head-tail
//	    x: 5
//	    y: 5
//	  format: csv
//	  error_log: errors.txt
//
// # Validation
//
// Validate reports every invalid field at once as a CONFIG error; the field
// list is attached under the "fields" context key.
package config
