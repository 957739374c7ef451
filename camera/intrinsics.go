package camera

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidCalibration is returned when a calibration matrix is missing, malformed or singular.
var ErrInvalidCalibration = errors.New("invalid camera calibration matrix")

// NewInvalidCalibrationError is used when the intrinsics cannot be used to calibrate points.
func NewInvalidCalibrationError(msg string) error {
	return errors.Wrap(ErrInvalidCalibration, msg)
}

// minConditionReciprocal is the smallest accepted reciprocal condition number of K.
const minConditionReciprocal = 1e-12

// Properties holds the intrinsic parameters of a camera: the 3x3 calibration matrix K and the
// division model coefficient of its lens. Width and Height are optional; when set they bound
// the image plane.
type Properties struct {
	Matrix     *mat.Dense
	Distortion *DivisionDistortion
	Width      int
	Height     int

	inverse *mat.Dense
}

// NewProperties validates the calibration matrix and returns intrinsics ready for use.
func NewProperties(matrix *mat.Dense, w float64, width, height int) (*Properties, error) {
	distortion, err := NewDivisionDistortion([]float64{w})
	if err != nil {
		return nil, err
	}
	props := &Properties{
		Matrix:     mat.DenseCopyOf(matrix),
		Distortion: distortion,
		Width:      width,
		Height:     height,
	}
	if err := props.CheckValid(); err != nil {
		return nil, err
	}
	var inverse mat.Dense
	if err := inverse.Inverse(props.Matrix); err != nil {
		return nil, NewInvalidCalibrationError(err.Error())
	}
	props.inverse = &inverse
	return props, nil
}

// NewPinholeProperties builds intrinsics from focal lengths and a principal point.
//
// Calibration matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func NewPinholeProperties(fx, fy, ppx, ppy, w float64, width, height int) (*Properties, error) {
	return NewProperties(mat.NewDense(3, 3, []float64{
		fx, 0, ppx,
		0, fy, ppy,
		0, 0, 1,
	}), w, width, height)
}

// CheckValid checks if the fields for Properties have valid inputs.
func (props *Properties) CheckValid() error {
	if props == nil {
		return NewInvalidCalibrationError("intrinsics do not exist")
	}
	if props.Matrix == nil {
		return NewInvalidCalibrationError("calibration matrix not provided")
	}
	if r, c := props.Matrix.Dims(); r != 3 || c != 3 {
		return NewInvalidCalibrationError(fmt.Sprintf("calibration matrix must be 3x3, got %dx%d", r, c))
	}
	if props.Width < 0 || props.Height < 0 {
		return NewInvalidCalibrationError(fmt.Sprintf("invalid size (%d, %d)", props.Width, props.Height))
	}
	if cond := mat.Cond(props.Matrix, 1); math.IsInf(cond, 1) || 1/cond < minConditionReciprocal {
		return NewInvalidCalibrationError("calibration matrix is singular")
	}
	if props.Distortion == nil {
		return nil
	}
	return props.Distortion.CheckValid()
}

func (props *Properties) inverseMatrix() *mat.Dense {
	if props.inverse != nil {
		return props.inverse
	}
	var inverse mat.Dense
	if err := inverse.Inverse(props.Matrix); err != nil {
		nan := math.NaN()
		return mat.NewDense(3, 3, []float64{nan, nan, nan, nan, nan, nan, nan, nan, nan})
	}
	return &inverse
}

// Calibrate removes the calibration matrix from a pixel, giving normalized image coordinates
// that still carry lens distortion.
func (props *Properties) Calibrate(pixel r2.Point) r2.Point {
	return applyHomography(props.inverseMatrix(), pixel)
}

// Uncalibrate applies the calibration matrix to normalized image coordinates.
func (props *Properties) Uncalibrate(normalized r2.Point) r2.Point {
	return applyHomography(props.Matrix, normalized)
}

// DistortAndUncalibrate distorts an undistorted normalized point and maps it to pixels. ok is
// false when the lens model has no image for the point.
func (props *Properties) DistortAndUncalibrate(normalized r2.Point) (r2.Point, bool) {
	distorted, ok := props.Distortion.Distort(normalized)
	if !ok {
		return distorted, false
	}
	return props.Uncalibrate(distorted), true
}

// UndistortPixel calibrates and undistorts a pixel. ok is false when the pixel lies outside the
// radius where the lens model can be inverted.
func (props *Properties) UndistortPixel(pixel r2.Point) (r2.Point, bool) {
	calibrated := props.Calibrate(pixel)
	if !props.Distortion.IsUndistortable(calibrated) {
		return calibrated, false
	}
	return props.Distortion.Undistort(calibrated), true
}

// Contains reports whether a pixel lies on the image. Without a known image size every finite
// pixel is accepted.
func (props *Properties) Contains(pixel r2.Point) bool {
	if math.IsNaN(pixel.X) || math.IsNaN(pixel.Y) || math.IsInf(pixel.X, 0) || math.IsInf(pixel.Y, 0) {
		return false
	}
	if props.Width == 0 || props.Height == 0 {
		return true
	}
	return pixel.X >= 0 && pixel.X < float64(props.Width) && pixel.Y >= 0 && pixel.Y < float64(props.Height)
}

// UndistortedImageRadius bounds the radius of every undistorted normalized point whose pixel is
// on the image. It is +Inf when the image size is unknown, when the calibration matrix is
// projective, and when barrel distortion puts the whole plane inside the image.
func (props *Properties) UndistortedImageRadius() float64 {
	if props.Width == 0 || props.Height == 0 {
		return math.Inf(1)
	}
	if props.Matrix.At(2, 0) != 0 || props.Matrix.At(2, 1) != 0 {
		return math.Inf(1)
	}
	// Calibration is affine, so the image stays a parallelogram and its farthest point from the
	// axis is a corner.
	width, height := float64(props.Width), float64(props.Height)
	var rd float64
	for _, corner := range []r2.Point{{X: 0, Y: 0}, {X: width, Y: 0}, {X: 0, Y: height}, {X: width, Y: height}} {
		rd = math.Max(rd, props.Calibrate(corner).Norm())
	}
	w, limit := 0., math.Inf(1)
	if props.Distortion != nil {
		w, limit = props.Distortion.W, props.Distortion.MaxUndistortableRadius()
	}
	switch {
	case w < 0 && rd >= limit:
		return math.Inf(1)
	case w > 0:
		// Distort never lands past the limit.
		rd = math.Min(rd, limit)
	}
	// Undistortion is increasing in the radius up to here.
	return rd / (1 + w*rd*rd)
}

// applyHomography maps a 2D point through a 3x3 matrix in homogeneous coordinates.
func applyHomography(h mat.Matrix, p r2.Point) r2.Point {
	var out mat.VecDense
	out.MulVec(h, mat.NewVecDense(3, []float64{p.X, p.Y, 1}))
	return r2.Point{X: out.AtVec(0) / out.AtVec(2), Y: out.AtVec(1) / out.AtVec(2)}
}
