// Package config defines the format-agnostic manifest model and the Loader
// contract that format-specific packages (HCL, YAML) implement.
package config
