package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/bus-tracker/internal/config"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--config", "bus.yml", "--env-file=prod.env", "--addr", ":9000"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, options{configPath: "bus.yml", envFile: "prod.env", addr: ":9000"}, opts)

	opts, err = parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, options{}, opts)

	_, err = parseFlags([]string{"--nope"}, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"serve"}, io.Discard)
	assert.Error(t, err)

	var usage bytes.Buffer
	_, err = parseFlags([]string{"--help"}, &usage)
	assert.True(t, errors.Is(err, pflag.ErrHelp))
	assert.Contains(t, usage.String(), "--hash-admin-key")
}

func TestRun_HashAdminKey(t *testing.T) {
	assert.NoError(t, run([]string{"--hash-admin-key", "s3cret"}))
}

func TestRun_InvalidConfig(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LOG_LEVEL", "loud")
	assert.Error(t, run(nil))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, log.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.WithField("bus", "42").Warn("shown")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "42", entry["bus"])

	logger, err = newLogger(config.LogConfig{Level: "debug", Format: "text"}, io.Discard)
	require.NoError(t, err)
	assert.IsType(t, &log.TextFormatter{}, logger.Formatter)

	_, err = newLogger(config.LogConfig{Level: "loud", Format: "text"}, io.Discard)
	assert.Error(t, err)
}
