package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		level     string
		debugOn   bool
		infoOn    bool
		warningOn bool
	}{
		{name: "development default", env: "development", debugOn: true, infoOn: true, warningOn: true},
		{name: "production default", env: "production", infoOn: true, warningOn: true},
		{name: "explicit warn", env: "production", level: "warn", warningOn: true},
		{name: "explicit debug in production", env: "production", level: "debug", debugOn: true, infoOn: true, warningOn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := NewLogger(tt.env, tt.level).Core()
			assert.Equal(t, tt.debugOn, core.Enabled(zap.DebugLevel))
			assert.Equal(t, tt.infoOn, core.Enabled(zap.InfoLevel))
			assert.Equal(t, tt.warningOn, core.Enabled(zap.WarnLevel))
		})
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	assert.Panics(t, func() { NewLogger("production", "loud") })
}
