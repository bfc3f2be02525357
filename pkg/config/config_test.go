package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("MIXY_TEST_VAR", "custom")

	assert.Equal(t, "custom", getEnv("MIXY_TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("MIXY_TEST_VAR_NOT_SET", "default"))
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"TRUE", "TRUE", false, true},
		{"one", "1", false, true},
		{"false", "false", true, false},
		{"garbage", "yes", true, false},
		{"unset uses default", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MIXY_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, getEnvBool("MIXY_TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, dropped, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	assert.Equal(t, "", cfg.PrimaryArchive)
	assert.Equal(t, "mixins", cfg.MixinsDir)
	assert.Equal(t, "mixy.log", cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Watch)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestParse_Flags(t *testing.T) {
	cfg, dropped, err := Parse([]string{
		"-jar", "app.jar",
		"--mixins=plugins",
		"-watch",
		"-log-level", "debug",
	})
	require.NoError(t, err)
	assert.Empty(t, dropped)

	assert.Equal(t, "app.jar", cfg.PrimaryArchive)
	assert.Equal(t, "plugins", cfg.MixinsDir)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_DropsUnknownOptions(t *testing.T) {
	cfg, dropped, err := Parse([]string{
		"-Xmx512m",
		"-jar", "app.jar",
		"--verbose",
		"stray",
		"-watch",
	})
	require.NoError(t, err)

	assert.Equal(t, "app.jar", cfg.PrimaryArchive)
	assert.True(t, cfg.Watch)
	assert.Equal(t, []string{"-Xmx512m", "--verbose", "stray"}, dropped)
}

func TestParse_EnvDefaults(t *testing.T) {
	t.Setenv("MIXY_JAR", "env.jar")
	t.Setenv("MIXY_WATCH", "true")

	cfg, _, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "env.jar", cfg.PrimaryArchive)
	assert.True(t, cfg.Watch)

	cfg, _, err = Parse([]string{"-jar", "flag.jar"})
	require.NoError(t, err)
	assert.Equal(t, "flag.jar", cfg.PrimaryArchive)
}

func TestParse_BadBoolValue(t *testing.T) {
	_, _, err := Parse([]string{"-watch=maybe"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.Validate(), ErrNoPrimaryArchive)

	cfg.PrimaryArchive = "app.jar"
	assert.NoError(t, cfg.Validate())

	cfg.MixinsDir = ""
	assert.Error(t, cfg.Validate())

	cfg.MixinsDir = "mixins"
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = ""
	assert.Error(t, cfg.Validate())
}
