// Package commands provides the command-line interface for the cloak tool.
//
// It implements commands for:
//   - sealing files with envelope encryption
//   - opening sealed files
//   - protecting and unlocking folders
//   - reading the audit trail
//   - serving the HTTP gate
//
// The package handles command-line parsing, configuration validation,
// and environment variable binding through cobra and viper.
package commands
