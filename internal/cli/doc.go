// Package cli provides command-line interface setup and configuration
// for poplingo. It handles flag parsing, command creation and turning
// flags, config file and environment into runtime settings using cobra
// and viper.
package cli
