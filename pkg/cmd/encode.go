// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tagwire.dev/tagwire/pkg/cmd/ui"
	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/eval"
	"tagwire.dev/tagwire/pkg/lazy"
	"tagwire.dev/tagwire/pkg/load"
	"tagwire.dev/tagwire/pkg/orderedmap"
	"tagwire.dev/tagwire/pkg/serialize"
)

type EncodeOptions struct {
	File       string
	ConfigFile string

	Profile            string
	PreprocessUnsafe   bool
	VaultToText        bool
	DecodeBytes        bool
	TrustTemplates     bool
	VaultPasswordFiles []string

	Evaluate   bool
	ValuesFile string

	Debug bool
}

func NewEncodeOptions() *EncodeOptions {
	return &EncodeOptions{}
}

func NewEncodeCmd(o *EncodeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a YAML document to wire JSON",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.File, "file", "f", "-", "File (local path or -)")
	cmd.Flags().StringVar(&o.ConfigFile, "config", "", "TOML config file with flag defaults")
	cmd.Flags().StringVar(&o.Profile, "profile", "", "Wire profile (legacy or tagged)")
	cmd.Flags().BoolVar(&o.PreprocessUnsafe, "preprocess-unsafe", false, "Wrap untrusted values in the legacy unsafe marker")
	cmd.Flags().BoolVar(&o.VaultToText, "vault-to-text", false, "Decrypt vaulted values and emit plaintext")
	cmd.Flags().BoolVar(&o.DecodeBytes, "decode-bytes", false, "Enable raw-bytes-to-text compatibility transform")
	cmd.Flags().BoolVar(&o.TrustTemplates, "trust-templates", false, "Mark loaded strings as trusted template sources")
	cmd.Flags().StringArrayVar(&o.VaultPasswordFiles, "vault-password-file", nil, "Vault password file, optionally 'id@path' (can be specified multiple times)")
	cmd.Flags().BoolVar(&o.Evaluate, "eval", false, "Evaluate trusted template expressions before encoding")
	cmd.Flags().StringVar(&o.ValuesFile, "values", "", "YAML file providing the variable scope for --eval")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Enable debug output")
	return cmd
}

func (o *EncodeOptions) Run() error {
	tty := ui.NewTTY(o.Debug)

	config, err := LoadConfig(o.ConfigFile)
	if err != nil {
		return err
	}
	o.applyConfig(config)

	secrets, err := LoadSecrets(o.VaultPasswordFiles)
	if err != nil {
		return err
	}

	data, err := readInput(o.File)
	if err != nil {
		return err
	}
	doc, err := load.Load(data, o.File, load.Opts{TrustTemplates: o.TrustTemplates})
	if err != nil {
		return err
	}

	if o.Evaluate {
		scope := map[string]interface{}{}
		if o.ValuesFile != "" {
			valuesData, err := readInput(o.ValuesFile)
			if err != nil {
				return err
			}
			valuesDoc, err := load.Load(valuesData, o.ValuesFile, load.Opts{})
			if err != nil {
				return err
			}
			valuesMap, ok := datatag.Native(valuesDoc).(*orderedmap.Map)
			if !ok {
				return fmt.Errorf("expected values file '%s' to hold a map", o.ValuesFile)
			}
			valuesMap.Iterate(func(k, v interface{}) {
				scope[k.(string)] = v
			})
		}

		engine := eval.NewEngine(scope)
		opts := lazy.Options{Transforms: eval.DefaultTransforms(secrets, func(msg string) {
			tty.Warnf("Warning: %s\n", msg)
		})}
		switch native := datatag.Native(doc).(type) {
		case *orderedmap.Map:
			doc = lazy.NewDict(native, engine, opts)
		case []interface{}:
			doc = lazy.NewList(native, engine, opts)
		default:
			doc, err = engine.Evaluate(doc)
			if err != nil {
				return err
			}
		}
	}

	profile, err := newProfile(o.Profile, serialize.Options{
		PreprocessUnsafe: o.PreprocessUnsafe,
		VaultToText:      o.VaultToText,
		DecodeBytes:      o.DecodeBytes,
		Secrets:          secrets,
	})
	if err != nil {
		return err
	}

	out, err := profile.Encode(doc)
	if err != nil {
		return err
	}
	tty.Printf("%s\n", out)
	return nil
}

func (o *EncodeOptions) applyConfig(config Config) {
	if o.Profile == "" {
		o.Profile = config.Profile
	}
	o.PreprocessUnsafe = o.PreprocessUnsafe || config.PreprocessUnsafe
	o.VaultToText = o.VaultToText || config.VaultToText
	o.DecodeBytes = o.DecodeBytes || config.DecodeBytes
	o.TrustTemplates = o.TrustTemplates || config.TrustTemplates
	o.VaultPasswordFiles = append(o.VaultPasswordFiles, config.VaultPasswordFiles...)
}

func newProfile(name string, opts serialize.Options) (serialize.Profile, error) {
	switch name {
	case "", "legacy":
		return serialize.NewLegacyProfile(opts), nil
	case "tagged":
		return serialize.NewTaggedProfile(opts), nil
	default:
		return nil, fmt.Errorf("unknown profile '%s' (expected legacy or tagged)", name)
	}
}
