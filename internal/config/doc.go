// Package config handles loading, parsing, and validating application
// configuration from files and environment variables.
package config
