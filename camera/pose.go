package camera

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidRotation is returned when a pose rotation is not a proper rotation matrix.
var ErrInvalidRotation = errors.New("invalid camera rotation")

// rotationTolerance bounds the deviation of R^T R from identity and of det(R) from one.
const rotationTolerance = 1e-6

// Pose stores the extrinsic parameters of a camera: the world to camera rotation and the
// position of the camera centre in world coordinates. A world point X maps to R(X - c), and
// it is in front of the camera when the resulting depth is negative.
type Pose struct {
	Rotation *mat.Dense
	Center   r3.Vector
}

// NewPose validates the rotation and returns a pose.
func NewPose(rotation *mat.Dense, center r3.Vector) (*Pose, error) {
	pose := &Pose{Rotation: mat.DenseCopyOf(rotation), Center: center}
	if err := pose.CheckValid(); err != nil {
		return nil, err
	}
	return pose, nil
}

// NewPoseFromExtrinsics creates a pose from a rotation and translation, as stored in a
// 3x4 [R|t] extrinsics matrix. The centre is -R^T t.
func NewPoseFromExtrinsics(rotation *mat.Dense, translation r3.Vector) (*Pose, error) {
	var center mat.VecDense
	center.MulVec(rotation.T(), mat.NewVecDense(3, []float64{translation.X, translation.Y, translation.Z}))
	return NewPose(rotation, r3.Vector{X: -center.AtVec(0), Y: -center.AtVec(1), Z: -center.AtVec(2)})
}

// CheckValid checks that the rotation is orthonormal with determinant +1.
func (pose *Pose) CheckValid() error {
	if pose == nil || pose.Rotation == nil {
		return errors.Wrap(ErrInvalidRotation, "rotation not provided")
	}
	if r, c := pose.Rotation.Dims(); r != 3 || c != 3 {
		return errors.Wrapf(ErrInvalidRotation, "rotation must be 3x3, got %dx%d", r, c)
	}
	var rtr mat.Dense
	rtr.Mul(pose.Rotation.T(), pose.Rotation)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			expected := 0.
			if i == j {
				expected = 1
			}
			if math.Abs(rtr.At(i, j)-expected) > rotationTolerance {
				return errors.Wrap(ErrInvalidRotation, "rotation is not orthonormal")
			}
		}
	}
	if det := mat.Det(pose.Rotation); math.Abs(det-1) > rotationTolerance {
		return errors.Wrap(ErrInvalidRotation, fmt.Sprintf("rotation determinant is %v, expected 1", det))
	}
	if math.IsNaN(pose.Center.X) || math.IsNaN(pose.Center.Y) || math.IsNaN(pose.Center.Z) {
		return errors.Wrap(ErrInvalidRotation, "center contains NaN")
	}
	return nil
}

// Row returns the i-th row of the rotation.
func (pose *Pose) Row(i int) r3.Vector {
	return r3.Vector{X: pose.Rotation.At(i, 0), Y: pose.Rotation.At(i, 1), Z: pose.Rotation.At(i, 2)}
}

// Translation returns t = -R c.
func (pose *Pose) Translation() r3.Vector {
	return pose.rotate(pose.Center).Mul(-1)
}

// ProjectionMatrix returns the 3x4 matrix [R | -R c] mapping homogeneous world points and
// directions into the (normalized) image plane of this camera.
func (pose *Pose) ProjectionMatrix() *mat.Dense {
	t := pose.Translation()
	var projMat mat.Dense
	projMat.Augment(pose.Rotation, mat.NewDense(3, 1, []float64{t.X, t.Y, t.Z}))
	return &projMat
}

// Project multiplies the homogeneous world vector [x; w] by the projection matrix. Use w = 1
// for points and w = 0 for directions.
func (pose *Pose) Project(x r3.Vector, w float64) r3.Vector {
	return pose.rotate(x.Sub(pose.Center.Mul(w)))
}

func (pose *Pose) rotate(v r3.Vector) r3.Vector {
	return r3.Vector{X: pose.Row(0).Dot(v), Y: pose.Row(1).Dot(v), Z: pose.Row(2).Dot(v)}
}
