package multiview

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/multiview/camera"
	"go.viam.com/multiview/logging"
	"go.viam.com/multiview/track"
)

// Builder assembles multiview tracks from tracks observed in a reference view.
type Builder struct {
	cameras   []*camera.Camera
	reference int
	others    []OtherView
	finder    *RayExtentFinder
	workers   int
	logger    logging.Logger
}

// NewBuilder returns a builder for the given cameras, one per view, where tracks are observed
// in view reference.
func NewBuilder(cameras []*camera.Camera, reference int, cfg Config, logger logging.Logger) (*Builder, error) {
	if reference < 0 || reference >= len(cameras) {
		return nil, errors.Errorf("reference view %d out of range [0, %d)", reference, len(cameras))
	}
	for i, cam := range cameras {
		if cam == nil {
			return nil, errors.Errorf("camera for view %d not provided", i)
		}
	}
	logger = logger.Sublogger("multiview")
	finder, err := NewRayExtentFinder(cfg, logger)
	if err != nil {
		return nil, err
	}
	others := make([]OtherView, 0, len(cameras)-1)
	for i, cam := range cameras {
		if i != reference {
			others = append(others, OtherView{Index: i, Camera: cam})
		}
	}
	return &Builder{
		cameras:   cameras,
		reference: reference,
		others:    others,
		finder:    finder,
		workers:   cfg.workers(),
		logger:    logger,
	}, nil
}

// NumViews returns the width of the multiview tracks built.
func (b *Builder) NumViews() int {
	return len(b.cameras)
}

// unit is one (track, time, other view) invocation of the ray extent finder.
type unit struct {
	track int
	time  int
	point r2.Point
	view  OtherView
}

// FindMultiviewTrack builds the multiview track of one track of undistorted normalized
// points. See FindMultiviewTracks.
func (b *Builder) FindMultiviewTrack(ctx context.Context, observations track.Observations) (track.MultiviewTrack, error) {
	tracks, err := b.FindMultiviewTracks(ctx, []track.Observations{observations})
	if len(tracks) == 0 {
		return nil, err
	}
	return tracks[0], err
}

// FindMultiviewTracks builds one multiview track per input track, in order. Input tracks
// hold undistorted normalized points in the reference view. The reference slot of each
// multiview track holds the observations in pixels; every other slot holds the candidates
// found at each time the ray is visible in that view.
//
// A unit that fails numerically leaves its slot empty; all such failures are returned
// together as *UnitError values alongside the tracks. Cancelling ctx stops the work and
// returns no tracks.
func (b *Builder) FindMultiviewTracks(ctx context.Context, tracks []track.Observations) ([]track.MultiviewTrack, error) {
	refCamera := b.cameras[b.reference]
	out := make([]track.MultiviewTrack, 0, len(tracks))
	var units []unit
	for i, observations := range tracks {
		mt := track.NewMultiviewTrack(len(b.cameras))
		for _, t := range observations.Times() {
			point := observations[t]
			if pixel, ok := refCamera.Properties.DistortAndUncalibrate(point); ok {
				mt[b.reference][t] = []r2.Point{pixel}
			}
			for _, other := range b.others {
				units = append(units, unit{track: i, time: t, point: point, view: other})
			}
		}
		out = append(out, mt)
	}

	results := make([][]r2.Point, len(units))
	unitErrs := make([]error, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, u := range units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			unitCtx := logging.WithFields(gctx, "track", u.track, "time", u.time, "view", u.view.Index)
			positions, err := b.finder.FindExtentOfRay(unitCtx, u.point, refCamera.Pose, u.view)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				b.logger.CDebugw(unitCtx, "failed to find extent of ray", "error", err)
				unitErrs[i] = &UnitError{Track: u.track, Time: u.time, View: u.view.Index, Err: err}
				return nil
			}
			results[i] = positions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, u := range units {
		if len(results[i]) > 0 {
			out[u.track][u.view.Index][u.time] = results[i]
		}
	}
	err := multierr.Combine(unitErrs...)
	if err != nil {
		b.logger.Warnw("some rays could not be quantized", "failures", len(multierr.Errors(err)))
	}
	return out, err
}
