// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	uierrs "github.com/cppforlife/go-cli-ui/errors"

	"tagwire.dev/tagwire/pkg/cmd"
)

func main() {
	command := cmd.NewDefaultTagwireCmd()

	err := command.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tagwire: Error: %s\n", uierrs.NewMultiLineError(err))
		os.Exit(1)
	}
}
