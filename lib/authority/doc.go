// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package authority arbitrates which of two peers owns a shared object
// without a central server.
//
// Each object carries a [State]: the counter this peer publishes and the
// last counter the other peer published. A peer owns the object while
// its counter is not behind the remote one in cyclic order (see
// [Ahead]). Taking ownership publishes remote+1; the other peer sees the
// larger counter on its next receive and yields.
//
// Transfers are driven by collision events fed to an [Arbiter]:
//
//   - a local controller touching an ungrabbed object takes it;
//   - an owned object hitting another object with at least as much
//     momentum pushes ownership onto it, so the owner of the faster
//     body controls both after impact.
//
// Grabbing is a hard override handled by the entity itself (it calls
// Take unconditionally). Releasing never changes ownership.
//
// There is no error path. Conflicts are resolved by these deterministic
// rules using only locally observed velocities and masses.
package authority
