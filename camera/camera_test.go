package camera

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func flipYZ() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, -1, 0, 0, 0, -1})
}

func TestPropertiesCalibration(t *testing.T) {
	props, err := NewPinholeProperties(500, 400, 320, 240, -0.1, 640, 480)
	test.That(t, err, test.ShouldBeNil)

	normalized := props.Calibrate(r2.Point{X: 420, Y: 200})
	test.That(t, normalized.X, test.ShouldAlmostEqual, 0.2, 1e-12)
	test.That(t, normalized.Y, test.ShouldAlmostEqual, -0.1, 1e-12)

	pixel := props.Uncalibrate(normalized)
	test.That(t, pixel.X, test.ShouldAlmostEqual, 420, 1e-9)
	test.That(t, pixel.Y, test.ShouldAlmostEqual, 200, 1e-9)

	undistorted, ok := props.UndistortPixel(r2.Point{X: 420, Y: 200})
	test.That(t, ok, test.ShouldBeTrue)
	back, ok := props.DistortAndUncalibrate(undistorted)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, back.X, test.ShouldAlmostEqual, 420, 1e-9)
	test.That(t, back.Y, test.ShouldAlmostEqual, 200, 1e-9)

	test.That(t, props.Contains(r2.Point{X: 0, Y: 0}), test.ShouldBeTrue)
	test.That(t, props.Contains(r2.Point{X: 640, Y: 10}), test.ShouldBeFalse)
	test.That(t, props.Contains(r2.Point{X: -0.5, Y: 10}), test.ShouldBeFalse)
}

func TestPropertiesCheckValid(t *testing.T) {
	_, err := NewProperties(mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 0}), 0, 0, 0)
	test.That(t, errors.Is(err, ErrInvalidCalibration), test.ShouldBeTrue)

	_, err = NewProperties(mat.NewDense(2, 2, []float64{1, 0, 0, 1}), 0, 0, 0)
	test.That(t, errors.Is(err, ErrInvalidCalibration), test.ShouldBeTrue)

	_, err = NewPinholeProperties(500, 500, 0, 0, 0, -1, 10)
	test.That(t, errors.Is(err, ErrInvalidCalibration), test.ShouldBeTrue)

	var props *Properties
	test.That(t, props.CheckValid(), test.ShouldNotBeNil)

	// Without a size every finite pixel is on the image.
	unsized, err := NewPinholeProperties(500, 500, 0, 0, 0, 0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, unsized.Contains(r2.Point{X: -1e6, Y: 1e6}), test.ShouldBeTrue)
}

func TestUndistortedImageRadius(t *testing.T) {
	// The image corners are at normalized radius sqrt(1.25).
	corner := math.Sqrt(1.25)
	for _, tc := range []struct {
		w        float64
		expected float64
	}{
		{0, corner},
		{-0.1, corner / (1 - 0.1*1.25)},
		{0.3, corner / (1 + 0.3*1.25)},
		// Past 1/sqrt(w) no pixel is the image of a point, and undistortion peaks there.
		{0.9, 1 / (2 * math.Sqrt(0.9))},
		{-1, math.Inf(1)},
	} {
		props, err := NewPinholeProperties(100, 100, 100, 50, tc.w, 200, 100)
		test.That(t, err, test.ShouldBeNil)
		radius := props.UndistortedImageRadius()
		if math.IsInf(tc.expected, 1) {
			test.That(t, math.IsInf(radius, 1), test.ShouldBeTrue)
			continue
		}
		test.That(t, radius, test.ShouldAlmostEqual, tc.expected, 1e-12)

		for x := 0.; x <= 200; x += 10 {
			for y := 0.; y <= 100; y += 10 {
				undistorted, ok := props.UndistortPixel(r2.Point{X: x, Y: y})
				if ok {
					test.That(t, undistorted.Norm(), test.ShouldBeLessThanOrEqualTo, radius*(1+1e-12))
				}
			}
		}
	}

	unsized, err := NewPinholeProperties(100, 100, 100, 50, 0, 0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.IsInf(unsized.UndistortedImageRadius(), 1), test.ShouldBeTrue)
}

func TestPoseValidation(t *testing.T) {
	_, err := NewPose(flipYZ(), r3.Vector{})
	test.That(t, err, test.ShouldBeNil)

	_, err = NewPose(mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, -1}), r3.Vector{})
	test.That(t, errors.Is(err, ErrInvalidRotation), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "determinant")

	_, err = NewPose(mat.NewDense(3, 3, []float64{2, 0, 0, 0, 1, 0, 0, 0, 1}), r3.Vector{})
	test.That(t, errors.Is(err, ErrInvalidRotation), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "orthonormal")

	_, err = NewPose(mat.NewDense(3, 4, nil), r3.Vector{})
	test.That(t, errors.Is(err, ErrInvalidRotation), test.ShouldBeTrue)
}

func TestPoseProjection(t *testing.T) {
	pose, err := NewPose(flipYZ(), r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, pose.Project(r3.Vector{X: 1, Y: 2, Z: 7}, 1), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: -4})
	test.That(t, pose.Project(r3.Vector{X: 1, Y: 1, Z: 1}, 0), test.ShouldResemble, r3.Vector{X: 1, Y: -1, Z: -1})

	projMat := pose.ProjectionMatrix()
	r, c := projMat.Dims()
	test.That(t, r, test.ShouldEqual, 3)
	test.That(t, c, test.ShouldEqual, 4)
	var out mat.VecDense
	out.MulVec(projMat, mat.NewVecDense(4, []float64{1, 2, 7, 1}))
	test.That(t, out.RawVector().Data, test.ShouldResemble, []float64{0, 0, -4})

	fromExtrinsics, err := NewPoseFromExtrinsics(flipYZ(), pose.Translation())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromExtrinsics.Center.Sub(pose.Center).Norm(), test.ShouldAlmostEqual, 0, 1e-12)
}

func TestCameraProjectPoint(t *testing.T) {
	props, err := NewPinholeProperties(500, 500, 320, 240, 0, 640, 480)
	test.That(t, err, test.ShouldBeNil)
	pose, err := NewPose(flipYZ(), r3.Vector{})
	test.That(t, err, test.ShouldBeNil)
	cam, err := NewCamera(props, pose)
	test.That(t, err, test.ShouldBeNil)

	pixel, ok := cam.ProjectPoint(r3.Vector{Z: 5})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pixel, test.ShouldResemble, r2.Point{X: 320, Y: 240})

	pixel, ok = cam.ProjectPoint(r3.Vector{X: 1, Z: 5})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pixel.X, test.ShouldAlmostEqual, 220, 1e-9)

	_, ok = cam.ProjectPoint(r3.Vector{Z: -5})
	test.That(t, ok, test.ShouldBeFalse)

	_, err = NewCamera(props, &Pose{})
	test.That(t, errors.Is(err, ErrInvalidRotation), test.ShouldBeTrue)
}

func TestCameraFiles(t *testing.T) {
	dir := t.TempDir()
	props, err := NewPinholeProperties(500, 510, 320, 240, -0.2, 640, 480)
	test.That(t, err, test.ShouldBeNil)
	pose, err := NewPose(flipYZ(), r3.Vector{X: 1, Y: -2, Z: 0.5})
	test.That(t, err, test.ShouldBeNil)

	for _, view := range []string{"left", "right"} {
		test.That(t, SaveProperties(filepath.Join(dir, "intrinsics-"+view+".yaml"), props), test.ShouldBeNil)
		test.That(t, SavePose(filepath.Join(dir, "extrinsics-"+view+".json"), pose), test.ShouldBeNil)
	}

	loadedProps, err := LoadProperties(filepath.Join(dir, "intrinsics-left.yaml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(loadedProps.Matrix, props.Matrix), test.ShouldBeTrue)
	test.That(t, loadedProps.Distortion.W, test.ShouldEqual, -0.2)
	test.That(t, loadedProps.Width, test.ShouldEqual, 640)

	loadedPose, err := LoadPose(filepath.Join(dir, "extrinsics-right.json"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loadedPose.Center, test.ShouldResemble, pose.Center)

	cameras, err := LoadCameras(context.Background(), []string{"left", "right"},
		filepath.Join(dir, "intrinsics-%s.yaml"), filepath.Join(dir, "extrinsics-%s.json"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cameras, test.ShouldHaveLength, 2)
	test.That(t, cameras[1].Pose.Center, test.ShouldResemble, pose.Center)

	_, err = LoadCameras(context.Background(), []string{"left", "missing"},
		filepath.Join(dir, "intrinsics-%s.yaml"), filepath.Join(dir, "extrinsics-%s.json"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing")
}

func TestPoseConfigTranslation(t *testing.T) {
	cfg := PoseConfig{
		Rotation:    []float64{1, 0, 0, 0, -1, 0, 0, 0, -1},
		Translation: []float64{-1, 0, 0},
	}
	pose, err := cfg.Pose()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Center.X, test.ShouldAlmostEqual, 1)

	_, err = (&PoseConfig{Rotation: cfg.Rotation}).Pose()
	test.That(t, err, test.ShouldNotBeNil)
	_, err = (&PropertiesConfig{Matrix: []float64{1}}).Properties()
	test.That(t, errors.Is(err, ErrInvalidCalibration), test.ShouldBeTrue)
}
