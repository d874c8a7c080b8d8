package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurostate/internal/replay"
	"neurostate/internal/service"
)

const fixturePath = "../../internal/replay/testdata/adhd_consecutive_red.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	output, verbose, presetsPath = "table", false, ""
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRunCommandTable(t *testing.T) {
	out, err := execute(t, "run", fixturePath)
	require.NoError(t, err)
	assert.Contains(t, out, "gentle_redirect")
	assert.Contains(t, out, "0 mismatches")
}

func TestRunCommandJSON(t *testing.T) {
	out, err := execute(t, "run", "-o", "json", fixturePath)
	require.NoError(t, err)

	var sum replay.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.True(t, sum.Passed())
	assert.Equal(t, 4, sum.Assessments)
}

func TestRunCommandFailsOnMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	doc := `
profile: {segment: neurotypical}
steps:
  - at: 2026-03-02T10:00:00Z
    assess: {crisis_flag: true, expect: {tier: proceed}}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	out, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Contains(t, out, "MISMATCH")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("JWT_ISSUER", "neurostate")

	out, err := execute(t, "token", "--user", "u1")
	require.NoError(t, err)

	claims, err := service.NewJWTService("dev-secret", "neurostate", 0).ParseAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}
