// Package logging builds the zap loggers used by the command line.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger flavor
type Options struct {
	// Verbose logs at debug level with the development encoder
	Verbose bool
	// JSON switches the encoder to JSON
	JSON bool
}

// Config returns the zap configuration for opts. Logs go to stderr so
// that reports written to stdout stay machine readable.
func Config(opts Options) zap.Config {
	var cfg zap.Config
	if opts.Verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	}
	if opts.JSON {
		cfg.Encoding = "json"
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

// New builds a logger for opts
func New(opts Options) (*zap.Logger, error) {
	return Config(opts).Build()
}
