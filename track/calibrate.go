package track

import (
	"go.viam.com/multiview/camera"
	"go.viam.com/multiview/logging"
)

// CalibrateAndUndistort maps every observation from pixels to undistorted normalized
// coordinates. Observations outside the radius where the lens model can be inverted are
// dropped, so the result may be shorter than the input.
func CalibrateAndUndistort(observations Observations, props *camera.Properties, logger logging.Logger) Observations {
	undistorted := make(Observations, len(observations))
	for _, time := range observations.Times() {
		calibrated := props.Calibrate(observations[time])
		if !props.Distortion.IsUndistortable(calibrated) {
			logger.Debugw("dropping observation outside undistortable radius",
				"time", time, "pixel", observations[time], "calibrated", calibrated)
			continue
		}
		undistorted[time] = props.Distortion.Undistort(calibrated)
	}
	return undistorted
}

// CalibrateAndUndistortList applies CalibrateAndUndistort to every track of a list,
// preserving order.
func CalibrateAndUndistortList(tracks []Observations, props *camera.Properties, logger logging.Logger) []Observations {
	out := make([]Observations, 0, len(tracks))
	dropped := 0
	for _, observations := range tracks {
		undistorted := CalibrateAndUndistort(observations, props, logger)
		dropped += len(observations) - len(undistorted)
		out = append(out, undistorted)
	}
	if dropped > 0 {
		logger.Infof("Dropped %d observations that could not be undistorted", dropped)
	}
	return out
}
