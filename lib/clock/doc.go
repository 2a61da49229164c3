// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets the tick loop and everything timed around it run
// against either the wall clock or a fake one.
//
// Components take a [Clock] instead of calling time.Now or
// time.NewTicker. Tests use [Fake] and drive it explicitly:
//
//	fake := clock.Fake(time.Unix(0, 0))
//	go session.Run(ctx)
//	fake.WaitForTimers(1)          // the tick loop created its ticker
//	fake.Advance(time.Second / 60) // exactly one tick
//
// [FakeClock.WaitForTimers] closes the race between a goroutine
// registering its ticker and the test advancing time.
package clock
