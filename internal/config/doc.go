// Package config loads the dupwatch CLI configuration from
// .dupwatch/config.yaml and DUPWATCH_* environment variables.
package config
