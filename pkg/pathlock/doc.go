// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

// Package pathlock provides a named mutex keyed by filesystem path,
// serializing both goroutines and cooperating processes.
package pathlock
