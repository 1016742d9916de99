// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package cmd is home to tagwire's commands -- instances of cobra.Command
(not to be confused with ./cmd which contains the bootstrapping for the
tagwire executable).

For a list of commands run:

	$ tagwire help
*/
package cmd
