package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heart-disease-predictor-server/internal/domain"
)

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "heart_disease_predictor", cfg.Database.Database)
	assert.Equal(t, "mongodb://localhost:27017", cfg.SecondaryStore.URI)
	assert.Equal(t, "predictions", cfg.SecondaryStore.Collection)
	assert.Equal(t, "models/heart_disease_model.json", cfg.Model.Path)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, m.Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	m := &Manager{config: &domain.Config{
		Server:   domain.ServerConfig{Port: 8080},
		Database: domain.DatabaseConfig{Driver: "oracle"},
	}}

	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestValidateSQLiteNeedsPath(t *testing.T) {
	m := &Manager{config: &domain.Config{
		Server:   domain.ServerConfig{Port: 8080},
		Database: domain.DatabaseConfig{Driver: "sqlite"},
		Model:    domain.ModelConfig{Path: "models/heart_disease_model.json"},
		Logging:  domain.LoggingConfig{Level: "info"},
	}}

	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite database path")
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	m := &Manager{config: &domain.Config{
		Server: domain.ServerConfig{Port: 8080},
		Database: domain.DatabaseConfig{
			Driver: "sqlite", SQLitePath: "data/patients.db",
		},
		Model:   domain.ModelConfig{Path: "models/heart_disease_model.json"},
		Logging: domain.LoggingConfig{Level: "verbose"},
	}}

	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(domain.LoggingConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	logger = NewLogger(domain.LoggingConfig{Level: "nonsense", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	_, ok = logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
