package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	GridPath string // pipeline .hcl file

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
