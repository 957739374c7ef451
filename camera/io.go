package camera

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/multiview/utils"
)

// PropertiesConfig is the on-disk form of camera intrinsics. Matrix is row-major.
type PropertiesConfig struct {
	Matrix   []float64 `json:"matrix" yaml:"matrix"`
	W        float64   `json:"w" yaml:"w"`
	WidthPx  int       `json:"width_px,omitempty" yaml:"width_px,omitempty"`
	HeightPx int       `json:"height_px,omitempty" yaml:"height_px,omitempty"`
}

// PoseConfig is the on-disk form of camera extrinsics. Rotation is row-major. Either the
// centre or the translation t = -R c must be given.
type PoseConfig struct {
	Rotation    []float64 `json:"rotation" yaml:"rotation"`
	Center      []float64 `json:"center,omitempty" yaml:"center,omitempty"`
	Translation []float64 `json:"translation,omitempty" yaml:"translation,omitempty"`
}

// Properties converts the config into validated intrinsics.
func (cfg *PropertiesConfig) Properties() (*Properties, error) {
	if len(cfg.Matrix) != 9 {
		return nil, NewInvalidCalibrationError("matrix must have 9 entries")
	}
	return NewProperties(mat.NewDense(3, 3, cfg.Matrix), cfg.W, cfg.WidthPx, cfg.HeightPx)
}

// Pose converts the config into a validated pose.
func (cfg *PoseConfig) Pose() (*Pose, error) {
	if len(cfg.Rotation) != 9 {
		return nil, errors.Wrap(ErrInvalidRotation, "rotation must have 9 entries")
	}
	rotation := mat.NewDense(3, 3, cfg.Rotation)
	switch {
	case len(cfg.Center) == 3:
		return NewPose(rotation, r3.Vector{X: cfg.Center[0], Y: cfg.Center[1], Z: cfg.Center[2]})
	case len(cfg.Center) == 0 && len(cfg.Translation) == 3:
		return NewPoseFromExtrinsics(rotation, r3.Vector{X: cfg.Translation[0], Y: cfg.Translation[1], Z: cfg.Translation[2]})
	default:
		return nil, errors.New("pose needs a 3 element center or translation")
	}
}

// LoadProperties reads camera intrinsics from a JSON or YAML file.
func LoadProperties(path string) (*Properties, error) {
	var cfg PropertiesConfig
	if err := utils.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	props, err := cfg.Properties()
	return props, errors.Wrapf(err, "intrinsics %s", path)
}

// LoadPose reads camera extrinsics from a JSON or YAML file.
func LoadPose(path string) (*Pose, error) {
	var cfg PoseConfig
	if err := utils.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	pose, err := cfg.Pose()
	return pose, errors.Wrapf(err, "extrinsics %s", path)
}

// SaveProperties writes camera intrinsics to a JSON or YAML file.
func SaveProperties(path string, props *Properties) error {
	cfg := PropertiesConfig{
		Matrix:   mat.DenseCopyOf(props.Matrix).RawMatrix().Data,
		WidthPx:  props.Width,
		HeightPx: props.Height,
	}
	if props.Distortion != nil {
		cfg.W = props.Distortion.W
	}
	return utils.EncodeFile(path, &cfg)
}

// SavePose writes camera extrinsics to a JSON or YAML file.
func SavePose(path string, pose *Pose) error {
	return utils.EncodeFile(path, &PoseConfig{
		Rotation: mat.DenseCopyOf(pose.Rotation).RawMatrix().Data,
		Center:   []float64{pose.Center.X, pose.Center.Y, pose.Center.Z},
	})
}

// LoadCameras loads the camera of every view concurrently. The intrinsics and extrinsics
// paths are built by substituting each view name into the given formats.
func LoadCameras(ctx context.Context, views []string, intrinsicsFormat, extrinsicsFormat string) ([]*Camera, error) {
	return utils.ParallelMap(ctx, len(views), utils.ParallelFactor, func(_ context.Context, i int) (*Camera, error) {
		view := views[i]
		props, err := LoadProperties(utils.ViewPath(intrinsicsFormat, view, ".yaml"))
		if err != nil {
			return nil, errors.Wrapf(err, "view %q", view)
		}
		pose, err := LoadPose(utils.ViewPath(extrinsicsFormat, view, ".yaml"))
		if err != nil {
			return nil, errors.Wrapf(err, "view %q", view)
		}
		cam, err := NewCamera(props, pose)
		return cam, errors.Wrapf(err, "view %q", view)
	})
}
