// Package config provides the configuration of a linkcheck run.
// It defines the defaults, validates user input and loads the optional
// YAML configuration file.
package config
