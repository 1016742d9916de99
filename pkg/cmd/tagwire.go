// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"

	"tagwire.dev/tagwire/pkg/version"
)

type TagwireOptions struct{}

func NewDefaultTagwireOptions() *TagwireOptions {
	return &TagwireOptions{}
}

func NewDefaultTagwireCmd() *cobra.Command {
	return NewTagwireCmd(NewDefaultTagwireOptions())
}

func NewTagwireCmd(o *TagwireOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tagwire",
		Version: version.Version,
		Short:   "tagwire tracks provenance and trust of templated data",
		Long: `tagwire tracks provenance and trust of templated data.

Values loaded from YAML carry origin, trust, and secrecy tags; the encode
and decode commands move tagged values across process boundaries without
losing (or leaking) that metadata.`,
	}

	// Affects children as well
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// Disable docs header
	cmd.DisableAutoGenTag = true

	cmd.AddCommand(NewEncodeCmd(NewEncodeOptions()))
	cmd.AddCommand(NewDecodeCmd(NewDecodeOptions()))
	cmd.AddCommand(NewVaultCmd())
	cmd.AddCommand(NewVersionCmd(NewVersionOptions()))

	// Reconfigure Commands
	cobrautil.VisitCommands(cmd, cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.DisallowExtraArgs, cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd))

	return cmd
}
