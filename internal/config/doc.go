// Package config loads and validates the craftwatchd YAML
// configuration. Values in the file may reference environment
// variables with ${VAR} syntax; they are expanded before parsing.
package config
