// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds the startup plumbing shared by the peersync
// binaries: the stderr logger and configuration loading.
package cli
