// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"errors"
	"math"
	"testing"

	"github.com/bureau-foundation/peersync/lib/authority"
	"github.com/bureau-foundation/peersync/lib/geom"
	"github.com/bureau-foundation/peersync/lib/wire"
)

type testBody struct {
	position, linear, angular geom.Vec3
	rotation                  geom.Quat
	mass                      float64
}

func newTestBody(position geom.Vec3) *testBody {
	return &testBody{position: position, rotation: geom.Identity(), mass: 1}
}

func (b *testBody) Position() geom.Vec3            { return b.position }
func (b *testBody) SetPosition(v geom.Vec3)        { b.position = v }
func (b *testBody) Rotation() geom.Quat            { return b.rotation }
func (b *testBody) SetRotation(q geom.Quat)        { b.rotation = q }
func (b *testBody) LinearVelocity() geom.Vec3      { return b.linear }
func (b *testBody) SetLinearVelocity(v geom.Vec3)  { b.linear = v }
func (b *testBody) AngularVelocity() geom.Vec3     { return b.angular }
func (b *testBody) SetAngularVelocity(v geom.Vec3) { b.angular = v }
func (b *testBody) Mass() float64                  { return b.mass }

func encode(t *testing.T, entity Entity, length int) []byte {
	t.Helper()
	writer := wire.NewWriter(make([]byte, length))
	entity.Encode(writer)
	if writer.Err() != nil {
		t.Fatalf("Encode: %v", writer.Err())
	}
	return writer.Bytes()
}

func near(a, b geom.Vec3, tolerance float64) bool {
	return math.Abs(a.X-b.X) <= tolerance &&
		math.Abs(a.Y-b.Y) <= tolerance &&
		math.Abs(a.Z-b.Z) <= tolerance
}

func TestRegisterFreezesLengths(t *testing.T) {
	registry := NewRegistry()
	controller := NewController(0, true, newTestBody(geom.Vec3{}))
	object := NewObject(newTestBody(geom.Vec3{}), registry)

	if index, err := registry.Register(controller); err != nil || index != 0 {
		t.Fatalf("Register(controller) = %d, %v", index, err)
	}
	if index, err := registry.Register(object); err != nil || index != 1 {
		t.Fatalf("Register(object) = %d, %v", index, err)
	}
	if got := registry.ByteLength(0); got != 28 {
		t.Errorf("controller length = %d, want 28", got)
	}
	if got := registry.ByteLength(1); got != 28 {
		t.Errorf("object length = %d, want 28", got)
	}
	if found, ok := registry.Controller(0); !ok || found != controller {
		t.Errorf("Controller(0) = %v, %v", found, ok)
	}
}

// shifty writes one byte during measurement and two afterwards.
type shifty struct{}

func (s *shifty) Kind() string  { return "shifty" }
func (s *shifty) Priority() int { return 0 }
func (s *shifty) Encode(w *wire.Writer) {
	w.WriteUint8(1)
	if !w.Measuring() {
		w.WriteUint8(2)
	}
}
func (s *shifty) Decode(r *wire.Reader) error { return nil }

func TestRegisterRejectsVariableLength(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Register(&shifty{})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
	if registry.Len() != 0 {
		t.Errorf("Len = %d after failed Register", registry.Len())
	}
}

func TestRegisterRejectsDuplicateController(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Register(NewController(1, true, newTestBody(geom.Vec3{}))); err != nil {
		t.Fatal(err)
	}
	_, err := registry.Register(NewController(1, false, newTestBody(geom.Vec3{})))
	if !errors.Is(err, ErrDuplicateController) {
		t.Fatalf("err = %v, want ErrDuplicateController", err)
	}
}

func TestRegisterRejectsDuplicateEntity(t *testing.T) {
	registry := NewRegistry()
	object := NewObject(newTestBody(geom.Vec3{}), registry)
	if _, err := registry.Register(object); err != nil {
		t.Fatal(err)
	}
	_, err := registry.Register(object)
	if !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("err = %v, want ErrDuplicateEntity", err)
	}
	if registry.Len() != 1 {
		t.Errorf("Len = %d, want 1", registry.Len())
	}

	// A distinct object of the same kind is a separate entity.
	if index, err := registry.Register(NewObject(newTestBody(geom.Vec3{}), registry)); err != nil || index != 1 {
		t.Errorf("Register(second object) = %d, %v, want 1, nil", index, err)
	}
}

func TestControllerPriorityAndDecode(t *testing.T) {
	local := NewController(0, true, newTestBody(geom.Vec3{X: 1}))
	remote := NewController(0, false, newTestBody(geom.Vec3{}))
	if local.Priority() != 999 || remote.Priority() != -1 {
		t.Fatalf("priorities = %d, %d", local.Priority(), remote.Priority())
	}

	local.Body().SetPosition(geom.Vec3{X: 0.25, Y: -1.5, Z: 3})
	payload := encode(t, local, 28)

	if err := remote.Decode(wire.NewReader(payload)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, want := remote.Body().Position(), (geom.Vec3{X: 0.25, Y: -1.5, Z: 3}); got != want {
		t.Errorf("remote position = %v, want %v", got, want)
	}

	// The local controller ignores what the other peer says about it.
	before := local.Body().Position()
	if err := local.Decode(wire.NewReader(make([]byte, 28))); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if local.Body().Position() != before {
		t.Error("local controller accepted a remote pose")
	}
}

func TestObjectRoundTripWithinQuantization(t *testing.T) {
	registry := NewRegistry()
	sender := NewObject(newTestBody(geom.Vec3{X: 1.2345, Y: -0.5, Z: 4.9}), registry)
	sender.SetAuthority(authority.State{Local: 1, Remote: 0})
	sender.Body().SetLinearVelocity(geom.Vec3{X: 12.34, Y: -0.01, Z: 99})
	sender.Body().SetRotation(geom.AxisAngle(geom.Vec3{Y: 1}, 0.7))

	receiver := NewObject(newTestBody(geom.Vec3{}), registry)
	receiver.SetAuthority(authority.State{Local: 0, Remote: 1})

	payload := encode(t, sender, 28)
	if err := receiver.Decode(wire.NewReader(payload)); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !near(receiver.Body().Position(), sender.Body().Position(), PositionRange/32768.0) {
		t.Errorf("position = %v, want near %v", receiver.Body().Position(), sender.Body().Position())
	}
	// The sender snapped its velocity to the transmitted value, so both
	// sides agree exactly.
	if receiver.Body().LinearVelocity() != sender.Body().LinearVelocity() {
		t.Errorf("linear velocity = %v, sender has %v",
			receiver.Body().LinearVelocity(), sender.Body().LinearVelocity())
	}
	if receiver.Authority().Remote != 1 {
		t.Errorf("receiver remote counter = %d, want 1", receiver.Authority().Remote)
	}
}

func TestObjectOwnedStopsAfterAuthority(t *testing.T) {
	registry := NewRegistry()
	object := NewObject(newTestBody(geom.Vec3{X: 2}), registry)
	object.SetAuthority(authority.State{Local: 5, Remote: 4})

	// Only the counter byte is present; an owned object must not read
	// further.
	reader := wire.NewReader([]byte{3})
	if err := object.Decode(reader); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if object.Body().Position().X != 2 {
		t.Error("owned object applied remote state")
	}
	if reader.Offset() != 1 {
		t.Errorf("reader offset = %d, want 1", reader.Offset())
	}
}

func TestObjectUnknownGrabber(t *testing.T) {
	registry := NewRegistry()
	object := NewObject(newTestBody(geom.Vec3{}), registry)
	object.SetAuthority(authority.State{Local: 0, Remote: 1})

	payload := make([]byte, 28)
	payload[0] = 2
	payload[1] = 7
	err := object.Decode(wire.NewReader(payload))
	if !errors.Is(err, ErrUnknownController) {
		t.Fatalf("err = %v, want ErrUnknownController", err)
	}
	if got := object.Authority(); got != (authority.State{Local: 0, Remote: 1}) {
		t.Errorf("authority after rejected payload = %+v, want unchanged", got)
	}
	if object.Grabber() != nil {
		t.Error("rejected payload attached a grabber")
	}
}

func TestObjectPriorityCounter(t *testing.T) {
	object := NewObject(newTestBody(geom.Vec3{}), NewRegistry())
	object.SetAuthority(authority.State{Local: 1, Remote: 0})
	object.Step(0.01)
	object.Step(0.01)
	if object.Priority() != 2 {
		t.Errorf("Priority = %d, want 2", object.Priority())
	}
	object.Sent()
	if object.Priority() != 0 {
		t.Errorf("Priority after Sent = %d, want 0", object.Priority())
	}

	object.SetAuthority(authority.State{Local: 1, Remote: 2})
	object.Step(0.01)
	if object.Priority() != -1 {
		t.Errorf("unowned Priority = %d, want -1", object.Priority())
	}

	object.TakeAuthority()
	if !object.HasAuthority() || object.Priority() != 10 {
		t.Errorf("after TakeAuthority: owned = %v, priority = %d", object.HasAuthority(), object.Priority())
	}
}

func TestGrabbedObjectFollowsControllerAcrossPeers(t *testing.T) {
	// Peer A grabs; peer B mirrors both the controller and the object.
	registryA, registryB := NewRegistry(), NewRegistry()
	handA := NewController(0, true, newTestBody(geom.Vec3{X: 1}))
	handB := NewController(0, false, newTestBody(geom.Vec3{}))
	if _, err := registryA.Register(handA); err != nil {
		t.Fatal(err)
	}
	if _, err := registryB.Register(handB); err != nil {
		t.Fatal(err)
	}
	objectA := NewObject(newTestBody(geom.Vec3{X: 1.5}), registryA)
	objectB := NewObject(newTestBody(geom.Vec3{X: 1.5}), registryB)
	objectA.SetAuthority(authority.Initial(0, false))
	objectB.SetAuthority(authority.Initial(0, true))

	objectA.Grab(handA)
	if !objectA.HasAuthority() || !objectA.Grabbed() {
		t.Fatal("grab must take authority")
	}

	handA.Body().SetPosition(geom.Vec3{X: 2, Y: 1})
	objectA.Step(0.1)
	if want := (geom.Vec3{X: 2.5, Y: 1}); !near(objectA.Body().Position(), want, 1e-9) {
		t.Fatalf("grabbed position = %v, want %v", objectA.Body().Position(), want)
	}

	if err := handB.Decode(wire.NewReader(encode(t, handA, 28))); err != nil {
		t.Fatal(err)
	}
	if err := objectB.Decode(wire.NewReader(encode(t, objectA, 28))); err != nil {
		t.Fatal(err)
	}
	if objectB.HasAuthority() {
		t.Fatal("peer B should have yielded")
	}
	if objectB.Grabber() != handB {
		t.Fatalf("peer B grabber = %v, want its controller 0", objectB.Grabber())
	}

	// A local impulse on B is overridden by the grab on the next step.
	objectB.Body().SetPosition(geom.Vec3{X: -3})
	handB.Body().SetPosition(geom.Vec3{X: 3, Y: 1})
	objectB.Step(0.1)
	if want := (geom.Vec3{X: 3.5, Y: 1}); !near(objectB.Body().Position(), want, 2*PositionRange/32768.0) {
		t.Errorf("peer B position = %v, want %v", objectB.Body().Position(), want)
	}
}

func TestManifestCompare(t *testing.T) {
	build := func(objects int) Manifest {
		registry := NewRegistry()
		if _, err := registry.Register(NewController(0, true, newTestBody(geom.Vec3{}))); err != nil {
			t.Fatal(err)
		}
		for range objects {
			if _, err := registry.Register(NewObject(newTestBody(geom.Vec3{}), registry)); err != nil {
				t.Fatal(err)
			}
		}
		manifest, err := registry.Manifest()
		if err != nil {
			t.Fatal(err)
		}
		return manifest
	}

	a, b, c := build(2), build(2), build(3)
	if err := a.Compare(b); err != nil {
		t.Errorf("identical registries differ: %v", err)
	}
	if err := a.Compare(c); err == nil {
		t.Error("different registries compare equal")
	}

	data, err := MarshalManifest(a)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalManifest(data)
	if err != nil {
		t.Fatalf("UnmarshalManifest: %v", err)
	}
	if err := decoded.Compare(a); err != nil {
		t.Errorf("decoded manifest differs: %v", err)
	}

	decoded.Entries[0].Length++
	if err := decoded.Verify(); !errors.Is(err, ErrFingerprint) {
		t.Errorf("Verify after tampering = %v, want ErrFingerprint", err)
	}
}
