package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obamem/internal/config"
	"github.com/KilimcininKorOglu/obamem/internal/logging"
	"github.com/KilimcininKorOglu/obamem/internal/password"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", []string{"obamem"}, 1},
		{"help command", []string{"obamem", "help"}, 0},
		{"short help flag", []string{"obamem", "-h"}, 0},
		{"long help flag", []string{"obamem", "--help"}, 0},
		{"unknown command", []string{"obamem", "unknown"}, 1},
		{"version", []string{"obamem", "version"}, 0},
		{"version short", []string{"obamem", "version", "-short"}, 0},
		{"version help", []string{"obamem", "version", "-help"}, 0},
		{"version bad flag", []string{"obamem", "version", "-nope"}, 1},
		{"serve help", []string{"obamem", "serve", "-h"}, 0},
		{"serve bad flag", []string{"obamem", "serve", "-nope"}, 1},
		{"serve invalid override", []string{"obamem", "serve", "-address", "nope"}, 1},
		{"serve missing config", []string{"obamem", "serve", "-config", "/nonexistent/obamem.yaml"}, 1},
		{"config usage", []string{"obamem", "config"}, 0},
		{"config help", []string{"obamem", "config", "help"}, 0},
		{"config unknown", []string{"obamem", "config", "nope"}, 1},
		{"config init", []string{"obamem", "config", "init"}, 0},
		{"config show", []string{"obamem", "config", "show"}, 0},
		{"config validate without file", []string{"obamem", "config", "validate"}, 1},
		{"passwd help", []string{"obamem", "passwd", "-h"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	require.NoError(t, os.WriteFile(valid, []byte("server:\n  address: \"127.0.0.1:3389\"\n"), 0600))
	assert.Equal(t, 0, run([]string{"obamem", "config", "validate", "-config", valid}))

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("sasl:\n  mechanisms: [PLAIN, PLAIN]\n"), 0600))
	assert.Equal(t, 1, run([]string{"obamem", "config", "validate", "-config", invalid}))
}

func TestWriteConfigYAMLRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.ReadTimeout = config.Duration(45 * time.Second)
	cfg.SASL.SessionIdleTimeout = config.Duration(90 * time.Minute)
	cfg.Directory.Entries = []config.EntryConfig{
		{DN: "uid=test.user,ou=users,dc=example,dc=com", Attributes: map[string][]string{
			"uid":          {"test.user"},
			"userPassword": {"pass\"word", "# not a comment"},
			"odd: name #x": {"a: b"},
			"description":  {"multi\nline", ""},
			"- dash":       {"[not a list]"},
		}},
	}
	cfg.SASL.Mechanisms = []string{"CRAM-MD5"}

	var buf bytes.Buffer
	require.NoError(t, writeConfigYAML(&buf, cfg))
	assert.Contains(t, buf.String(), "readTimeout: 45s")
	assert.Contains(t, buf.String(), "sessionIdleTimeout: 1h30m0s")

	parsed, err := config.ParseConfig(buf.Bytes())
	require.NoError(t, err, buf.String())
	assert.Equal(t, cfg, parsed)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OBAMEM_SERVER_ADDRESS", "127.0.0.1:4389")
	t.Setenv("OBAMEM_SASL_MECHANISMS", " cram-md5 , ,PLAIN")
	t.Setenv("OBAMEM_LOGGING_LEVEL", "debug")
	t.Setenv("OBAMEM_METRICS_ADDRESS", "127.0.0.1:9191")

	cfg := config.DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "127.0.0.1:4389", cfg.Server.Address)
	assert.Equal(t, []string{"cram-md5", "PLAIN"}, cfg.SASL.Mechanisms)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9191", cfg.Metrics.Address)
}

func TestPasswd(t *testing.T) {
	t.Run("hashes stdin", func(t *testing.T) {
		assert.Equal(t, 0, passwdCmd([]string{"-scheme", "ssha512"}, strings.NewReader("secret\n")))
	})

	t.Run("empty password", func(t *testing.T) {
		assert.Equal(t, 1, passwdCmd(nil, strings.NewReader("\n")))
	})

	t.Run("unknown scheme", func(t *testing.T) {
		assert.Equal(t, 1, passwdCmd([]string{"-scheme", "MD4"}, strings.NewReader("secret\n")))
	})
}

func TestSchemePrefix(t *testing.T) {
	assert.Equal(t, password.SchemeSSHA256, schemePrefix("ssha256"))
	assert.Equal(t, password.SchemeBcrypt, schemePrefix("{BCRYPT}"))
	assert.Equal(t, password.SchemeCleartext, schemePrefix(" cleartext "))
}

func TestReadPasswordFromStdin(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"secret\n", "secret"},
		{"secret\r\n", "secret"},
		{"secret", "secret"},
		{"first\nsecond\n", "first"},
		{"", ""},
	}

	for _, tt := range tests {
		got, err := readPasswordFromStdin(strings.NewReader(tt.input))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestRunServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, cfg, logging.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunServerBadMechanism(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Address = "127.0.0.1:0"
	cfg.SASL.Mechanisms = []string{"GSSAPI"}

	err := runServer(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GSSAPI")
}
