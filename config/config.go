// Package config reads the job file describing one multiview track search: which views to
// match, where their cameras and tracks live and how finely rays are quantized.
package config

import (
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/multiview/multiview"
	"go.viam.com/multiview/track"
)

// Job is a multiview track search over a set of calibrated views.
type Job struct {
	// ReferenceView is the zero-based index, into the view list, of the view the tracks were
	// observed in.
	ReferenceView int `json:"reference_view" yaml:"reference_view" validate:"gte=0"`
	// Tracks is the single-view track list of the reference view.
	Tracks string `json:"tracks" yaml:"tracks" validate:"required" jsonschema:"required"`
	// IntrinsicsFormat and ExtrinsicsFormat locate each view's camera files. "%s" is replaced
	// by the view name; a format without it is a directory holding "<view>.yaml".
	IntrinsicsFormat string `json:"intrinsics_format" yaml:"intrinsics_format" validate:"required" jsonschema:"required"`
	ExtrinsicsFormat string `json:"extrinsics_format" yaml:"extrinsics_format" validate:"required" jsonschema:"required"`
	// Views is a file listing one view name per line. ViewNames lists them inline instead.
	Views     string   `json:"views,omitempty" yaml:"views,omitempty" validate:"required_without=ViewNames"`
	ViewNames []string `json:"view_names,omitempty" yaml:"view_names,omitempty" validate:"required_without=Views,dive,required"`
	// Output is where the multiview track list is written.
	Output string `json:"output" yaml:"output" validate:"required" jsonschema:"required"`
	// SQLite optionally names a database that the result is also saved to.
	SQLite string `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	Debug  bool   `json:"debug,omitempty" yaml:"debug,omitempty"`

	Quantization multiview.Config `json:"quantization" yaml:"quantization"`
}

var validate = validator.New()

// Validate ensures all parts of the job are valid.
func (j *Job) Validate(path string) error {
	if err := validate.Struct(j); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if err := j.Quantization.Validate(); err != nil {
		return utils.NewConfigValidationError(path+".quantization", err)
	}
	return nil
}

// ViewList returns the names of the views in index order.
func (j *Job) ViewList() ([]string, error) {
	if len(j.ViewNames) > 0 {
		return j.ViewNames, nil
	}
	views, err := track.ReadLines(j.Views)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, errors.Errorf("no views listed in %s", j.Views)
	}
	return views, nil
}

// ResolvePaths makes every relative path in the job relative to dir.
func (j *Job) ResolvePaths(dir string) {
	for _, p := range []*string{&j.Tracks, &j.IntrinsicsFormat, &j.ExtrinsicsFormat, &j.Views, &j.Output, &j.SQLite} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(dir, *p)
	}
}
