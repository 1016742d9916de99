// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tagwire.dev/tagwire/pkg/cmd/ui"
	"tagwire.dev/tagwire/pkg/pathlock"
	"tagwire.dev/tagwire/pkg/vault"
)

func NewVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Encrypt and decrypt vault secrets",
	}
	cmd.AddCommand(NewVaultEncryptCmd(NewVaultEncryptOptions()))
	cmd.AddCommand(NewVaultDecryptCmd(NewVaultDecryptOptions()))
	cmd.AddCommand(NewVaultViewCmd(NewVaultViewOptions()))
	return cmd
}

type VaultEncryptOptions struct {
	File               string
	Output             string
	VaultID            string
	VaultPasswordFiles []string
}

func NewVaultEncryptOptions() *VaultEncryptOptions {
	return &VaultEncryptOptions{}
}

func NewVaultEncryptCmd(o *VaultEncryptOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt plaintext into vault armor",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.File, "file", "f", "-", "Plaintext file (local path or -)")
	cmd.Flags().StringVarP(&o.Output, "output", "o", "", "Write armor to file instead of stdout")
	cmd.Flags().StringVar(&o.VaultID, "vault-id", "", "Vault id label to record in the armor header")
	cmd.Flags().StringArrayVar(&o.VaultPasswordFiles, "vault-password-file", nil, "Vault password file, optionally 'id@path'")
	return cmd
}

func (o *VaultEncryptOptions) Run() error {
	tty := ui.NewTTY(false)

	secret, err := o.pickSecret()
	if err != nil {
		return err
	}

	plaintext, err := readInput(o.File)
	if err != nil {
		return err
	}

	armor, err := vault.Encrypt(string(plaintext), secret)
	if err != nil {
		return err
	}

	return writeOutput(tty, o.Output, armor)
}

func (o *VaultEncryptOptions) pickSecret() (vault.Secret, error) {
	secrets, err := LoadSecrets(o.VaultPasswordFiles)
	if err != nil {
		return vault.Secret{}, err
	}
	for _, secret := range secrets {
		if secret.ID == o.VaultID {
			return secret, nil
		}
	}
	if o.VaultID == "" && len(secrets) > 0 {
		return secrets[0], nil
	}
	return vault.Secret{}, fmt.Errorf("no vault password file matches vault id '%s'", o.VaultID)
}

type VaultDecryptOptions struct {
	File               string
	Output             string
	VaultPasswordFiles []string
}

func NewVaultDecryptOptions() *VaultDecryptOptions {
	return &VaultDecryptOptions{}
}

func NewVaultDecryptCmd(o *VaultDecryptOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt vault armor into plaintext",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.File, "file", "f", "-", "Armor file (local path or -)")
	cmd.Flags().StringVarP(&o.Output, "output", "o", "", "Write plaintext to file instead of stdout")
	cmd.Flags().StringArrayVar(&o.VaultPasswordFiles, "vault-password-file", nil, "Vault password file, optionally 'id@path'")
	return cmd
}

func (o *VaultDecryptOptions) Run() error {
	tty := ui.NewTTY(false)

	secrets, err := LoadSecrets(o.VaultPasswordFiles)
	if err != nil {
		return err
	}

	armor, err := readInput(o.File)
	if err != nil {
		return err
	}

	plaintext, err := secrets.Decrypt(string(armor))
	if err != nil {
		return err
	}

	return writeOutput(tty, o.Output, plaintext)
}

type VaultViewOptions struct {
	File               string
	VaultPasswordFiles []string
}

func NewVaultViewOptions() *VaultViewOptions {
	return &VaultViewOptions{}
}

func NewVaultViewCmd(o *VaultViewOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Decrypt vault armor and display the plaintext",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.File, "file", "f", "-", "Armor file (local path or -)")
	cmd.Flags().StringArrayVar(&o.VaultPasswordFiles, "vault-password-file", nil, "Vault password file, optionally 'id@path'")
	return cmd
}

func (o *VaultViewOptions) Run() error {
	return o.RunWithUI(ui.NewTTY(false))
}

// RunWithUI is used by tests to capture output.
func (o *VaultViewOptions) RunWithUI(tty ui.UI) error {
	secrets, err := LoadSecrets(o.VaultPasswordFiles)
	if err != nil {
		return err
	}

	armor, err := readInput(o.File)
	if err != nil {
		return err
	}

	plaintext, err := secrets.Decrypt(string(armor))
	if err != nil {
		return err
	}

	tty.Printf("%s\n", plaintext)
	return nil
}

// writeOutput prints to stdout, or writes the file under its path lock so
// concurrent invocations do not interleave.
func writeOutput(tty ui.UI, path, content string) error {
	if path == "" {
		tty.Printf("%s\n", content)
		return nil
	}
	return pathlock.With(path+".lock", func() error {
		return os.WriteFile(path, []byte(content), 0o600)
	})
}
