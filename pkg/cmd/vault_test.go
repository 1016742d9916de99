// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagwire.dev/tagwire/pkg/cmd"
	"tagwire.dev/tagwire/pkg/cmd/ui"
	"tagwire.dev/tagwire/pkg/vault"
)

func TestVaultViewDisplaysPlaintext(t *testing.T) {
	dir := t.TempDir()
	passFile := filepath.Join(dir, "pass")
	require.NoError(t, os.WriteFile(passFile, []byte("hunter2\n"), 0o600))

	armor, err := vault.Encrypt("s3cret config", vault.Secret{Password: []byte("hunter2")})
	require.NoError(t, err)
	armorFile := filepath.Join(dir, "secret.vault")
	require.NoError(t, os.WriteFile(armorFile, []byte(armor), 0o600))

	o := cmd.NewVaultViewOptions()
	o.File = armorFile
	o.VaultPasswordFiles = []string{passFile}

	var stdout, stderr bytes.Buffer
	require.NoError(t, o.RunWithUI(ui.NewCustomWriterTTY(false, &stdout, &stderr)))

	assert.Equal(t, "s3cret config\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestVaultViewWrongPassword(t *testing.T) {
	dir := t.TempDir()
	passFile := filepath.Join(dir, "pass")
	require.NoError(t, os.WriteFile(passFile, []byte("wrong\n"), 0o600))

	armor, err := vault.Encrypt("s3cret config", vault.Secret{Password: []byte("hunter2")})
	require.NoError(t, err)
	armorFile := filepath.Join(dir, "secret.vault")
	require.NoError(t, os.WriteFile(armorFile, []byte(armor), 0o600))

	o := cmd.NewVaultViewOptions()
	o.File = armorFile
	o.VaultPasswordFiles = []string{passFile}

	err = o.RunWithUI(ui.NewCustomWriterTTY(false, &bytes.Buffer{}, &bytes.Buffer{}))
	require.Error(t, err)
	var decryptErr *vault.DecryptionError
	assert.ErrorAs(t, err, &decryptErr)
}

func TestVaultCommandTree(t *testing.T) {
	var names []string
	for _, sub := range cmd.NewVaultCmd().Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"encrypt", "decrypt", "view"}, names)
}
