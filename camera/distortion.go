package camera

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ErrInvalidDistortion is returned when the distortion parameters cannot be used.
var ErrInvalidDistortion = errors.New("invalid distortion parameters")

// undistortableEpsilon is the margin kept from the radii where 1 + w*r^2 vanishes and, for
// w > 0, where w*r^2 reaches one and undistortion stops being one to one.
const undistortableEpsilon = 1e-6

// DivisionDistortion is the radial division model. A distorted point p_d in normalized
// image coordinates maps to the undistorted point p_d / (1 + W*|p_d|^2). Barrel distortion
// has W < 0, in which case the whole undistorted plane, including its points at infinity,
// lands inside the disc of radius 1/sqrt(-W).
type DivisionDistortion struct {
	W float64 `json:"w"`
}

// NewDivisionDistortion takes in a slice holding at most the single coefficient w.
func NewDivisionDistortion(inp []float64) (*DivisionDistortion, error) {
	if len(inp) > 1 {
		return nil, errors.Errorf("list of parameters too long, expected max 1, got %d", len(inp))
	}
	if len(inp) == 0 {
		return &DivisionDistortion{}, nil
	}
	d := &DivisionDistortion{W: inp[0]}
	if err := d.CheckValid(); err != nil {
		return nil, err
	}
	return d, nil
}

// CheckValid checks if the fields for DivisionDistortion have valid inputs.
func (d *DivisionDistortion) CheckValid() error {
	if d == nil {
		return errors.Wrap(ErrInvalidDistortion, "division model not provided")
	}
	if math.IsNaN(d.W) || math.IsInf(d.W, 0) {
		return errors.Wrap(ErrInvalidDistortion, "w must be finite")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (d *DivisionDistortion) Parameters() []float64 {
	if d == nil {
		return []float64{}
	}
	return []float64{d.W}
}

// IsUndistortable reports whether the distorted point lies safely inside the radius where
// Distort inverts Undistort: 1 + w*r^2 is positive and, for w > 0, w*r^2 is below one.
func (d *DivisionDistortion) IsUndistortable(p r2.Point) bool {
	if d == nil {
		return true
	}
	wr2 := d.W * p.Dot(p)
	if d.W > 0 {
		return 1-wr2 > undistortableEpsilon
	}
	return 1+wr2 > undistortableEpsilon
}

// Undistort maps a distorted normalized point to its undistorted position. Callers must
// check IsUndistortable first.
func (d *DivisionDistortion) Undistort(p r2.Point) r2.Point {
	if d == nil || d.W == 0 {
		return p
	}
	return p.Mul(1 / (1 + d.W*p.Dot(p)))
}

// Distort maps an undistorted normalized point to its distorted position. It is the inverse
// of Undistort, solving w*r_u*r_d^2 - r_d + r_u = 0 for the root that is continuous at w = 0.
// ok is false when the discriminant is negative, which only happens for w > 0.
func (d *DivisionDistortion) Distort(p r2.Point) (r2.Point, bool) {
	if d == nil || d.W == 0 {
		return p, true
	}
	disc := 1 - 4*d.W*p.Dot(p)
	if disc < 0 || math.IsNaN(disc) {
		return r2.Point{X: math.NaN(), Y: math.NaN()}, false
	}
	// r_d / r_u written so that it needs no division by r_u.
	return p.Mul(2 / (1 + math.Sqrt(disc))), true
}

// DistortPointAtInfinity returns the distorted position of the point at infinity in the
// given image direction. Only barrel distortion (w < 0) maps such points to a finite
// position, on the circle of radius 1/sqrt(-w).
func (d *DivisionDistortion) DistortPointAtInfinity(direction r2.Point) (r2.Point, bool) {
	if d == nil || d.W >= 0 {
		return r2.Point{}, false
	}
	norm := direction.Norm()
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return r2.Point{}, false
	}
	return direction.Mul(1 / (norm * math.Sqrt(-d.W))), true
}

// MaxUndistortableRadius returns the distorted radius beyond which points cannot be
// undistorted, or +Inf when the model is valid everywhere.
func (d *DivisionDistortion) MaxUndistortableRadius() float64 {
	if d == nil || d.W == 0 {
		return math.Inf(1)
	}
	return 1 / math.Sqrt(math.Abs(d.W))
}
