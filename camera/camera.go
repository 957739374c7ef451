// Package camera models calibrated cameras: the division lens distortion model, the intrinsic
// calibration matrix and the extrinsic pose, and the operators composed from them.
package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Camera combines intrinsics and extrinsics. It is immutable after construction.
type Camera struct {
	Properties *Properties
	Pose       *Pose
}

// NewCamera validates both halves of the camera.
func NewCamera(props *Properties, pose *Pose) (*Camera, error) {
	if err := props.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "intrinsics")
	}
	if err := pose.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "extrinsics")
	}
	return &Camera{Properties: props, Pose: pose}, nil
}

// ProjectPoint projects a world point to a distorted pixel. ok is false when the point is not
// in front of the camera or the lens model has no image for it.
func (c *Camera) ProjectPoint(x r3.Vector) (r2.Point, bool) {
	projected := c.Pose.Project(x, 1)
	if projected.Z >= 0 {
		return r2.Point{}, false
	}
	return c.Properties.DistortAndUncalibrate(FromHomogeneous(projected))
}

// FromHomogeneous divides a homogeneous image point by its third coordinate.
func FromHomogeneous(x r3.Vector) r2.Point {
	return r2.Point{X: x.X / x.Z, Y: x.Y / x.Z}
}
