// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// recorder captures Fatalf instead of stopping the test.
type recorder struct {
	failed  bool
	message string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "value"); got != 7 {
		t.Errorf("RequireReceive = %d, want 7", got)
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second, "closed channel")
}

func TestRequireClosedTimesOut(t *testing.T) {
	r := &recorder{}
	RequireClosed(r, make(chan struct{}), time.Millisecond, "waiting for %s", "relay")
	if !r.failed {
		t.Fatal("RequireClosed did not fail on an open channel")
	}
	if want := "waiting for relay"; !strings.Contains(r.message, want) {
		t.Errorf("message = %q, want it to mention %q", r.message, want)
	}
}

