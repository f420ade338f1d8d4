package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Options struct {
	Env      string
	Level    string
	Encoding string
}

// New builds a zap logger: development config for the development env,
// production config otherwise. Level and Encoding override the preset.
func New(opts Options) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(strings.TrimSpace(opts.Env), "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if opts.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}
	if opts.Encoding != "" {
		zapCfg.Encoding = opts.Encoding
	}

	// stdout carries operator output; diagnostics go to stderr.
	zapCfg.OutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger failed: %w", err)
	}
	return logger, nil
}
