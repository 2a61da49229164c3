// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package world

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/peersync/lib/geom"
)

// Layout is the static description of a world. Both peers must build
// from identical layouts; the registry order follows directly from it.
type Layout struct {
	// Controllers is the number of player hands. Controller 0 belongs
	// to the session initiator, controller 1 to the other peer.
	Controllers int `yaml:"controllers"`

	ControllerRadius float64 `yaml:"controller_radius"`
	ControllerMass   float64 `yaml:"controller_mass"`

	Objects []ObjectSpec `yaml:"objects"`
}

// ObjectSpec places one shared object.
type ObjectSpec struct {
	Position [3]float64 `yaml:"position"`
	Radius   float64    `yaml:"radius"`
	Mass     float64    `yaml:"mass"`
}

// Vec returns the spawn position.
func (s ObjectSpec) Vec() geom.Vec3 {
	return geom.Vec3{X: s.Position[0], Y: s.Position[1], Z: s.Position[2]}
}

// DefaultLayout is two hands and a row of ten balls.
func DefaultLayout() Layout {
	layout := Layout{
		Controllers:      2,
		ControllerRadius: 0.1,
		ControllerMass:   1,
	}
	for i := range 10 {
		layout.Objects = append(layout.Objects, ObjectSpec{
			Position: [3]float64{float64(i)/2 - 2.25, 0.1, 0},
			Radius:   0.1,
			Mass:     1,
		})
	}
	return layout
}

// Validate reports every problem with the layout.
func (l Layout) Validate() error {
	var errs []error
	if l.Controllers < 1 {
		errs = append(errs, fmt.Errorf("controllers must be at least 1, got %d", l.Controllers))
	}
	if l.Controllers > 100 {
		errs = append(errs, fmt.Errorf("controllers must be at most 100, got %d", l.Controllers))
	}
	if l.ControllerRadius <= 0 {
		errs = append(errs, fmt.Errorf("controller_radius must be positive, got %v", l.ControllerRadius))
	}
	if l.ControllerMass <= 0 {
		errs = append(errs, fmt.Errorf("controller_mass must be positive, got %v", l.ControllerMass))
	}
	for i, object := range l.Objects {
		if object.Radius <= 0 {
			errs = append(errs, fmt.Errorf("objects[%d].radius must be positive, got %v", i, object.Radius))
		}
		if object.Mass <= 0 {
			errs = append(errs, fmt.Errorf("objects[%d].mass must be positive, got %v", i, object.Mass))
		}
	}
	return errors.Join(errs...)
}
