// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"tagwire.dev/tagwire/pkg/vault"
)

// Config holds CLI defaults loaded from a TOML file via --config. Flags
// given on the command line win over config values.
type Config struct {
	Profile            string   `toml:"profile"`
	PreprocessUnsafe   bool     `toml:"preprocess_unsafe"`
	VaultToText        bool     `toml:"vault_to_text"`
	DecodeBytes        bool     `toml:"decode_bytes"`
	TrustTemplates     bool     `toml:"trust_templates"`
	VaultPasswordFiles []string `toml:"vault_password_files"`
}

func LoadConfig(path string) (Config, error) {
	var config Config
	if path == "" {
		return config, nil
	}
	_, err := toml.DecodeFile(path, &config)
	if err != nil {
		return Config{}, fmt.Errorf("loading config '%s': %s", path, err)
	}
	return config, nil
}

// LoadSecrets reads vault password files into candidate secrets. Each entry
// is a path, or 'id@path' to associate a vault id with the password.
func LoadSecrets(passwordFiles []string) (vault.Secrets, error) {
	var secrets vault.Secrets
	for _, entry := range passwordFiles {
		id := ""
		path := entry
		if idx := strings.Index(entry, "@"); idx >= 0 {
			id, path = entry[:idx], entry[idx+1:]
		}
		password, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading vault password file '%s': %s", path, err)
		}
		secrets = append(secrets, vault.Secret{
			ID:       id,
			Password: []byte(strings.TrimRight(string(password), "\r\n")),
		})
	}
	return secrets, nil
}

// readInput reads path, with '-' meaning stdin.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading '%s': %s", path, err)
	}
	return data, nil
}
