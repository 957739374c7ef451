package multiview

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDegenerateProjection means the ray has no usable projection in a view, e.g. it lies
	// in the view's principal plane.
	ErrDegenerateProjection = errors.New("degenerate projection of ray")
	// ErrLimitCycle means a bisection step failed to move lambda.
	ErrLimitCycle = errors.New("entered limit cycle")
	// ErrUnboundedRay means the ray crosses the principal plane of a view whose lens model
	// sends points at infinity to infinity, so its image has no finite end.
	ErrUnboundedRay = errors.New("ray image has no finite limit")
	// ErrNoBracket means no finite lambda could be found close enough to the vanishing point.
	ErrNoBracket = errors.New("could not bracket vanishing point")
	// ErrCandidateBudget means a ray needed more quantization steps than allowed.
	ErrCandidateBudget = errors.New("candidate budget exceeded")
)

// UnitError reports the failure of a single (track, time, view) unit of work.
type UnitError struct {
	Track int
	Time  int
	View  int
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("track %d time %d view %d: %v", e.Track, e.Time, e.View, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnitError) Unwrap() error {
	return e.Err
}
