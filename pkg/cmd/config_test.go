// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagwire.dev/tagwire/pkg/cmd"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagwire.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
profile = "tagged"
preprocess_unsafe = true
vault_password_files = ["prod@/etc/vault-pass"]
`), 0o600))

	config, err := cmd.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tagged", config.Profile)
	assert.True(t, config.PreprocessUnsafe)
	assert.Equal(t, []string{"prod@/etc/vault-pass"}, config.VaultPasswordFiles)

	// empty path means no config
	config, err = cmd.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, cmd.Config{}, config)

	_, err = cmd.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadSecrets(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "pass")
	require.NoError(t, os.WriteFile(plain, []byte("hunter2\n"), 0o600))
	labeled := filepath.Join(dir, "prod-pass")
	require.NoError(t, os.WriteFile(labeled, []byte("pr0d\n"), 0o600))

	secrets, err := cmd.LoadSecrets([]string{plain, "prod@" + labeled})
	require.NoError(t, err)
	require.Len(t, secrets, 2)

	assert.Equal(t, "", secrets[0].ID)
	assert.Equal(t, []byte("hunter2"), secrets[0].Password)
	assert.Equal(t, "prod", secrets[1].ID)
	assert.Equal(t, []byte("pr0d"), secrets[1].Password)

	_, err = cmd.LoadSecrets([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
