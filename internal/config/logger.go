package config

import "go.uber.org/zap"

// NewLogger builds a production JSON logger, or a console logger in development.
func NewLogger(c Config) (*zap.Logger, error) {
	if c.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
