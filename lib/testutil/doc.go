// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the
// select-with-timeout pattern so tests that wait on goroutines, data
// channels or the relay never hang. They are the only place tests use
// the wall clock; simulation time in tests comes from lib/clock's
// fake.
//
// Failures call t.Fatalf.
package testutil
