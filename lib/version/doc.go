// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the peersync binaries.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected with
// -ldflags, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/peersync/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/...
//
// Without injection they read "unknown" and "0.1.0-dev". [Protocol] is
// a constant: it changes only when the packet format does.
package version
