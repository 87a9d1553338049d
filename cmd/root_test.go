package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/matchagig/internal/chat"
	"github.com/spigell/matchagig/internal/matchagig"
	"github.com/spigell/matchagig/internal/session"
	"github.com/spigell/matchagig/internal/store"
)

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	cfg, err := decodeConfig(newTestViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Backend.Timeout)
	assert.Equal(t, store.DriverBolt, cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Upload.Concurrency)
	assert.Equal(t, 3, cfg.Overview.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Overview.Delay)
	assert.Equal(t, 200, cfg.Chat.MaxLogLength)
}

func TestDecodeConfigFromFileAndEnv(t *testing.T) {
	t.Setenv("MATCHAGIG_UPLOAD_CONCURRENCY", "8")

	cfg, err := decodeConfig(newTestViper(t, `
backend:
  base-url: https://matchagig.example.com
  timeout: 30s
store:
  path: /tmp/matchagig.db
overview:
  attempts: 5
  delay: 500ms
`))
	require.NoError(t, err)

	assert.Equal(t, "https://matchagig.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "/tmp/matchagig.db", cfg.Store.Path)
	assert.Equal(t, 5, cfg.Overview.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Overview.Delay)
	assert.Equal(t, 8, cfg.Upload.Concurrency)
}

func TestDecodeConfigValidation(t *testing.T) {
	for name, yaml := range map[string]string{
		"zero concurrency": "upload:\n  concurrency: 0\n",
		"unknown driver":   "store:\n  driver: sqlite\n",
		"postgres no url":  "store:\n  driver: postgres\n",
		"bad base url":     "backend:\n  base-url: not a url\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeConfig(newTestViper(t, yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validating config")
		})
	}
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t,
		session.ErrNoCandidate.Error(),
		describeError(&chat.PreconditionError{Err: session.ErrNoCandidate}),
	)
	assert.Equal(t,
		"model overloaded",
		describeError(fmt.Errorf("chat: %w", &matchagig.APIError{Op: "chat", Status: 503, Message: "model overloaded"})),
	)
	assert.Equal(t,
		"overview failed: backend is unreachable",
		describeError(&matchagig.TransportError{Op: "overview", Err: errors.New("connection refused")}),
	)
	assert.Contains(t, describeError(fmt.Errorf("loading: %w", store.ErrNotFound)), "loading")
}

func TestJobText(t *testing.T) {
	text, err := jobText("", []string{"Go engineer"})
	require.NoError(t, err)
	assert.Equal(t, "Go engineer", text)

	_, err = jobText("", nil)
	require.ErrorIs(t, err, session.ErrEmptyJobText)

	_, err = jobText("jd.txt", []string{"Go engineer"})
	require.Error(t, err)
}
