// Package track defines point tracks over time and the pipeline that moves them from pixels
// into undistorted normalized image coordinates.
package track

import (
	"sort"

	"github.com/golang/geo/r2"
)

// Track is a sequence of values keyed by time index.
type Track[T any] map[int]T

// Times returns the time indices of the track in increasing order.
func (t Track[T]) Times() []int {
	times := make([]int, 0, len(t))
	for time := range t {
		times = append(times, time)
	}
	sort.Ints(times)
	return times
}

// Observations is a track of single 2D observations in one view.
type Observations = Track[r2.Point]

// Candidates is a track holding, at each time, the ordered candidate positions of the point
// in one view.
type Candidates = Track[[]r2.Point]

// MultiviewTrack holds one candidate track per view, indexed by view.
type MultiviewTrack []Candidates

// NumCandidates returns the total number of candidate positions over all views and times.
func (mt MultiviewTrack) NumCandidates() int {
	n := 0
	for _, view := range mt {
		for _, positions := range view {
			n += len(positions)
		}
	}
	return n
}

// NewMultiviewTrack returns a multiview track with an empty candidate track in every view.
func NewMultiviewTrack(numViews int) MultiviewTrack {
	mt := make(MultiviewTrack, numViews)
	for i := range mt {
		mt[i] = Candidates{}
	}
	return mt
}
