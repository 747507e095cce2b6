package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string // .hcl/.yaml file or directory
	Task         string // empty selects the first declared task
	List         bool   // print the selected modules instead of running
	Recent       int    // print this many recorded runs instead of running

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	HistoryPath string

	SocketURL       string
	SocketNamespace string
	SocketEvent     string

	OTelEndpoint string

	// MaxParallel overrides the task's max_parallel when positive.
	MaxParallel int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("MaxParallel must not be negative, got %d", cfg.MaxParallel)
	}
	if cfg.Recent < 0 {
		return nil, fmt.Errorf("Recent must not be negative, got %d", cfg.Recent)
	}
	if cfg.Recent > 0 && cfg.HistoryPath == "" {
		return nil, errors.New("Recent requires HistoryPath")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("HealthcheckPort %d is out of range", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
