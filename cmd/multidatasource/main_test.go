package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/multidatasource/internal/errs"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "multidatasource dev")
}

func TestCheck_MissingConfigFile(t *testing.T) {
	_, err := run(t, "check", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))
}

func TestServe_RefusesIncompleteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
datasources:
  first:
    driver: postgres
    dsn: postgres://reader@localhost:5432/first_db
`), 0o600))

	_, err := run(t, "serve", "--config", path)
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))
	assert.Contains(t, err.Error(), "second")
}
