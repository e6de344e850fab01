// Package config loads the operator configuration.
//
// Settings come from an optional YAML file and from environment variables.
// Environment variables always win over the file, so a deployment can ship
// a baseline file and override single values per cluster.
package config
