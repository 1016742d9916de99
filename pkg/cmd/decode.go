// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tagwire.dev/tagwire/pkg/cmd/ui"
	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/orderedmap"
	"tagwire.dev/tagwire/pkg/serialize"
)

type DecodeOptions struct {
	File       string
	ConfigFile string

	Profile            string
	DecodeBytes        bool
	VaultPasswordFiles []string

	ShowTags bool
	Debug    bool
}

func NewDecodeOptions() *DecodeOptions {
	return &DecodeOptions{}
}

func NewDecodeCmd(o *DecodeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode wire JSON back into a tagged value",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.File, "file", "f", "-", "File (local path or -)")
	cmd.Flags().StringVar(&o.ConfigFile, "config", "", "TOML config file with flag defaults")
	cmd.Flags().StringVar(&o.Profile, "profile", "", "Wire profile (legacy or tagged)")
	cmd.Flags().BoolVar(&o.DecodeBytes, "decode-bytes", false, "Enable raw-bytes-to-text compatibility transform")
	cmd.Flags().StringArrayVar(&o.VaultPasswordFiles, "vault-password-file", nil, "Vault password file, optionally 'id@path' (can be specified multiple times)")
	cmd.Flags().BoolVar(&o.ShowTags, "show-tags", false, "Print tag inventory to stderr")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Enable debug output")
	return cmd
}

func (o *DecodeOptions) Run() error {
	tty := ui.NewTTY(o.Debug)

	config, err := LoadConfig(o.ConfigFile)
	if err != nil {
		return err
	}
	if o.Profile == "" {
		o.Profile = config.Profile
	}
	o.DecodeBytes = o.DecodeBytes || config.DecodeBytes
	o.VaultPasswordFiles = append(o.VaultPasswordFiles, config.VaultPasswordFiles...)

	secrets, err := LoadSecrets(o.VaultPasswordFiles)
	if err != nil {
		return err
	}

	data, err := readInput(o.File)
	if err != nil {
		return err
	}

	profile, err := newProfile(o.Profile, serialize.Options{
		DecodeBytes: o.DecodeBytes,
		Secrets:     secrets,
	})
	if err != nil {
		return err
	}

	value, err := profile.Decode(data)
	if err != nil {
		return err
	}

	if o.ShowTags {
		printTags(tty, "$", value)
	}

	// print the decoded value in its plain legacy shape
	out, err := serialize.NewLegacyProfile(serialize.Options{
		DecodeBytes: o.DecodeBytes,
		Secrets:     secrets,
	}).Encode(value)
	if err != nil {
		return err
	}
	tty.Printf("%s\n", out)
	return nil
}

func printTags(tty ui.UI, path string, value interface{}) {
	for _, tag := range datatag.Tags(value) {
		tty.Warnf("%s: %s\n", path, describeTag(tag))
	}
	switch typedVal := datatag.Native(value).(type) {
	case *orderedmap.Map:
		typedVal.Iterate(func(k, v interface{}) {
			printTags(tty, fmt.Sprintf("%s.%v", path, datatag.Native(k)), v)
		})
	case []interface{}:
		for i, item := range typedVal {
			printTags(tty, fmt.Sprintf("%s[%d]", path, i), item)
		}
	}
}

func describeTag(tag datatag.Tag) string {
	switch typedTag := tag.(type) {
	case datatag.Origin:
		return fmt.Sprintf("origin %s", typedTag.Description())
	case datatag.Deprecated:
		return fmt.Sprintf("deprecated: %s", typedTag.Msg)
	default:
		return string(tag.Kind())
	}
}
