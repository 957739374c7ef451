package multiview

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/multiview/camera"
)

// lookingAlongZ is the rotation of a camera that looks along world +z.
func lookingAlongZ() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, -1, 0, 0, 0, -1})
}

// lookingAlongMinusZ is the rotation of a camera that looks along world -z.
func lookingAlongMinusZ() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// rotationAboutY composes a rotation about the world y axis with the given rotation.
func rotationAboutY(theta float64, rotation *mat.Dense) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	var out mat.Dense
	out.Mul(rotation, mat.NewDense(3, 3, []float64{c, 0, s, 0, 1, 0, -s, 0, c}))
	return &out
}

func newTestCamera(t *testing.T, f, w float64, width, height int, rotation *mat.Dense, center r3.Vector) *camera.Camera {
	t.Helper()
	props, err := camera.NewPinholeProperties(f, f, float64(width)/2, float64(height)/2, w, width, height)
	test.That(t, err, test.ShouldBeNil)
	pose, err := camera.NewPose(rotation, center)
	test.That(t, err, test.ShouldBeNil)
	cam, err := camera.NewCamera(props, pose)
	test.That(t, err, test.ShouldBeNil)
	return cam
}
