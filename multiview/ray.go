// Package multiview finds, for a point tracked in one camera, the search space of its
// correspondences in every other camera. The viewing ray of each observation is projected
// into the other views and its visible extent is quantized into candidate pixel positions
// spaced a fixed distance apart.
package multiview

import (
	"context"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/multiview/camera"
	"go.viam.com/multiview/logging"
)

// centerTolerance is how close two camera centres must be, relative to their distance from the
// origin, for the ray to collapse to a single point in the other view.
const centerTolerance = 1e-12

// Ray is the half line Origin + lambda*Direction, lambda >= 0, of world points that project to
// one image point.
type Ray struct {
	Origin    r3.Vector
	Direction r3.Vector
}

// NewRay returns the viewing ray of an undistorted normalized point. The direction spans the
// null space of A = R_xy - p R_z and is signed so that the ray lies in front of the camera.
func NewRay(pose *camera.Pose, p r2.Point) Ray {
	rx, ry, rz := pose.Row(0), pose.Row(1), pose.Row(2)
	a0 := rx.Sub(rz.Mul(p.X))
	a1 := ry.Sub(rz.Mul(p.Y))
	return Ray{Origin: pose.Center, Direction: a0.Cross(a1).Mul(-1)}
}

// At returns the point of the ray at lambda.
func (r Ray) At(lambda float64) r3.Vector {
	return r.Origin.Add(r.Direction.Mul(lambda))
}

// OtherView is a view the ray is searched in.
type OtherView struct {
	Index  int
	Camera *camera.Camera
}

// projectedRay is a ray mapped into the homogeneous image plane of another camera, so that the
// point at lambda is A + lambda*B.
type projectedRay struct {
	a, b  r3.Vector
	props *camera.Properties
}

func projectRay(ray Ray, cam *camera.Camera) projectedRay {
	return projectedRay{
		a:     cam.Pose.Project(ray.Origin, 1),
		b:     cam.Pose.Project(ray.Direction, 0),
		props: cam.Properties,
	}
}

// at returns the pixel of the point at lambda. Points on or behind the principal plane are
// taken at infinity, in the direction the image moves as the point approaches the plane from
// the front. ok is false when that pixel is not finite.
func (pr projectedRay) at(lambda float64) (r2.Point, bool) {
	x := pr.a.Add(pr.b.Mul(lambda))
	if x.Z < 0 {
		return pr.props.DistortAndUncalibrate(camera.FromHomogeneous(x))
	}
	return pr.atInfinity(r2.Point{X: -x.X, Y: -x.Y})
}

func (pr projectedRay) atInfinity(direction r2.Point) (r2.Point, bool) {
	distorted, ok := pr.props.Distortion.DistortPointAtInfinity(direction)
	if !ok {
		return r2.Point{X: math.Inf(1), Y: math.Inf(1)}, false
	}
	return pr.props.Uncalibrate(distorted), true
}

// distanceError returns f(lambda) = |x(lambda) - ref| - delta. Pixels without a finite
// position are infinitely far away.
func distanceError(at func(float64) (r2.Point, bool), ref r2.Point, delta float64) func(float64) float64 {
	return func(lambda float64) float64 {
		x, ok := at(lambda)
		if !ok {
			return math.Inf(1)
		}
		return x.Sub(ref).Norm() - delta
	}
}

// RayExtentFinder quantizes the visible extent of viewing rays in other views.
type RayExtentFinder struct {
	cfg    Config
	tol    tolerance
	logger logging.Logger
}

// NewRayExtentFinder returns a finder using the given quantization parameters.
func NewRayExtentFinder(cfg Config, logger logging.Logger) (*RayExtentFinder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RayExtentFinder{cfg: cfg, tol: epsTolerance(cfg.ToleranceBits), logger: logger}, nil
}

// FindExtentOfRay returns the candidate pixels in the other view for an undistorted
// normalized point observed by a camera with the given pose. Consecutive candidates are
// delta pixels apart and are ordered by increasing distance along the ray. The result is
// empty when no part of the ray is visible.
func (f *RayExtentFinder) FindExtentOfRay(
	ctx context.Context,
	point r2.Point,
	pose *camera.Pose,
	other OtherView,
) ([]r2.Point, error) {
	ray := NewRay(pose, point)
	pr := projectRay(ray, other.Camera)
	a3, b3 := pr.a.Z, pr.b.Z

	if math.IsNaN(a3) || math.IsNaN(b3) {
		return nil, errors.Wrap(ErrDegenerateProjection, "homogeneous depth is NaN")
	}
	switch {
	case a3 == 0 && b3 == 0:
		return nil, errors.Wrap(ErrDegenerateProjection, "ray lies in the principal plane")
	case a3 >= 0 && b3 >= 0:
		// No point of the ray is in front of the camera.
		f.logger.CDebugw(ctx, "Ray is not observed")
		return nil, nil
	}

	// The ray starts at the other camera's centre, so it projects to a single point.
	if other.Camera.Pose.Center.Sub(ray.Origin).Norm() <= centerTolerance*math.Max(1, ray.Origin.Norm()) {
		return f.collapsedRay(ctx, pr)
	}

	var lambdaMin float64
	if a3 < 0 {
		f.logger.CDebugw(ctx, "Ray starts in front of camera")
	} else {
		f.logger.CDebugw(ctx, "Ray starts behind camera")
		// Abs folds -0 when the ray starts on the principal plane.
		lambdaMin = math.Abs(-a3 / b3)
	}

	var (
		lambda float64
		xRef   r2.Point
		err    error
	)
	switch {
	case b3 < 0:
		f.logger.CDebugw(ctx, "Ray ends in front of camera")
		vp, ok := pr.props.DistortAndUncalibrate(camera.FromHomogeneous(pr.b))
		if !ok {
			return nil, errors.Wrapf(ErrDegenerateProjection, "vanishing point %v has no image", pr.b)
		}
		xRef = vp
		if lambda, err = f.bracket(pr, xRef, lambdaMin); err != nil {
			return nil, err
		}
	case b3 == 0:
		// Parallel to the principal plane, the image still runs off to infinity.
		f.logger.CDebugw(ctx, "Ray stays in front of camera without a vanishing point")
		limit, ok := pr.atInfinity(r2.Point{X: -pr.b.X, Y: -pr.b.Y})
		if !ok {
			return nil, errors.Wrapf(ErrUnboundedRay, "w = %v", pr.props.Distortion.Parameters())
		}
		xRef = limit
		if lambda, err = f.bracket(pr, xRef, lambdaMin); err != nil {
			return nil, err
		}
	default:
		f.logger.CDebugw(ctx, "Ray ends behind camera")
		lambda = -a3 / b3
		crossing := pr.a.Add(pr.b.Mul(lambda))
		limit, ok := pr.atInfinity(r2.Point{X: -crossing.X, Y: -crossing.Y})
		if !ok {
			return nil, errors.Wrapf(ErrUnboundedRay, "w = %v", pr.props.Distortion.Parameters())
		}
		xRef = limit
	}

	positions, err := f.quantize(ctx, pr.at, xRef, lambdaMin, lambda, newRayRegion(pr))
	if err != nil {
		return nil, err
	}
	f.logger.CDebugf(ctx, "Quantized ray into %d positions", len(positions))
	return positions, nil
}

// collapsedRay handles a ray whose origin is the other camera's centre. Its image is the
// vanishing point, when that is in front of the camera.
func (f *RayExtentFinder) collapsedRay(ctx context.Context, pr projectedRay) ([]r2.Point, error) {
	if pr.b.Z >= 0 {
		f.logger.CDebugw(ctx, "Ray is not observed")
		return nil, nil
	}
	vp, ok := pr.props.DistortAndUncalibrate(camera.FromHomogeneous(pr.b))
	if !ok || !pr.props.Contains(vp) {
		return nil, nil
	}
	f.logger.CDebugw(ctx, "Ray projects to a single point")
	return []r2.Point{vp}, nil
}

// bracket finds a finite lambda past lambdaMin whose image is within delta of the image of the
// far end of the ray, by doubling from one.
func (f *RayExtentFinder) bracket(pr projectedRay, far r2.Point, lambdaMin float64) (float64, error) {
	errFn := distanceError(pr.at, far, f.cfg.Delta)
	lambda := 1.
	for i := 0; i < f.cfg.MaxBracketDoublings && !math.IsInf(lambda, 1); i++ {
		if lambda > lambdaMin && errFn(lambda) < 0 {
			return lambda, nil
		}
		lambda *= 2
	}
	return 0, errors.Wrapf(ErrNoBracket, "after %d doublings", f.cfg.MaxBracketDoublings)
}

// visibleRegion keeps the candidates that land on the image and tells the walk when the rest of
// the ray can no longer reach it.
type visibleRegion interface {
	Contains(pixel r2.Point) bool
	// Reaches reports whether any lambda in [lo, hi] may project onto the image.
	Reaches(lo, hi float64) bool
}

// radiusMargin widens the undistorted image radius against rounding.
const radiusMargin = 1e-9

// rayRegion bounds a projected ray by the disc of undistorted normalized points whose pixels
// can be on the image.
type rayRegion struct {
	pr     projectedRay
	radius float64
}

func newRayRegion(pr projectedRay) rayRegion {
	return rayRegion{pr: pr, radius: pr.props.UndistortedImageRadius() * (1 + radiusMargin)}
}

func (r rayRegion) Contains(pixel r2.Point) bool {
	return r.pr.props.Contains(pixel)
}

// Reaches compares the smallest distance of the segment from the optical axis with the radius.
// The segment is a straight line in the undistorted plane, so that distance is at an end or at
// the single interior critical point.
func (r rayRegion) Reaches(lo, hi float64) bool {
	if math.IsInf(r.radius, 1) {
		return true
	}
	dist := math.Min(r.pr.axisDistance(lo), r.pr.axisDistance(hi))
	if lambda, ok := r.pr.closestToAxis(); ok && lambda > lo && lambda < hi {
		dist = math.Min(dist, r.pr.axisDistance(lambda))
	}
	// NaN keeps the walk going.
	return !(dist > r.radius)
}

// axisDistance is the radius of the undistorted normalized point at lambda, +Inf on or behind
// the principal plane.
func (pr projectedRay) axisDistance(lambda float64) float64 {
	x := pr.a.Add(pr.b.Mul(lambda))
	if x.Z >= 0 {
		return math.Inf(1)
	}
	return math.Hypot(x.X, x.Y) / -x.Z
}

// closestToAxis returns the lambda where the squared radius |p + lambda q|^2 / (s + lambda t)^2
// is stationary, with A = (p, s) and B = (q, t). ok is false when there is none.
func (pr projectedRay) closestToAxis() (float64, bool) {
	p := r2.Point{X: pr.a.X, Y: pr.a.Y}
	q := r2.Point{X: pr.b.X, Y: pr.b.Y}
	s, t := pr.a.Z, pr.b.Z
	den := q.Dot(q)*s - t*p.Dot(q)
	if den == 0 {
		return 0, false
	}
	return (t*p.Dot(p) - s*p.Dot(q)) / den, true
}

// quantize walks from the far end of the ray, at lambda hi with image xRef, towards lambdaMin.
// Each step bisects for the lambda whose image is delta away from the previous position. Only
// positions on the image are kept. The walk ends when the rest of the ray is within delta of
// the last position or can no longer reach the image.
func (f *RayExtentFinder) quantize(
	ctx context.Context,
	at func(float64) (r2.Point, bool),
	xRef r2.Point,
	lambdaMin, hi float64,
	region visibleRegion,
) ([]r2.Point, error) {
	var positions []r2.Point
	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !region.Reaches(lambdaMin, hi) {
			break
		}
		errFn := distanceError(at, xRef, f.cfg.Delta)
		if errFn(lambdaMin) < 0 {
			break
		}
		if step >= f.cfg.MaxCandidates {
			return nil, errors.Wrapf(ErrCandidateBudget, "%d steps", f.cfg.MaxCandidates)
		}

		_, next, err := bisect(errFn, lambdaMin, hi, f.tol, f.cfg.MaxBisectIterations)
		if err != nil {
			return nil, errors.Wrap(ErrDegenerateProjection, err.Error())
		}
		if next == hi {
			return nil, errors.Wrapf(ErrLimitCycle, "lambda %v did not move", hi)
		}
		hi = next

		x, ok := at(next)
		if !ok {
			return nil, errors.Wrapf(ErrUnboundedRay, "lambda %v", next)
		}
		xRef = x
		if region.Contains(x) {
			positions = append(positions, x)
		}
	}

	// The walk runs from the far end, so reverse into increasing lambda.
	for i, j := 0, len(positions)-1; i < j; i, j = i+1, j-1 {
		positions[i], positions[j] = positions[j], positions[i]
	}
	return positions, nil
}
