package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/multiview/logging"
	"go.viam.com/multiview/multiview"
	"go.viam.com/multiview/utils"
)

// Read reads a job from the given file. Environment variables in the file are expanded and
// relative paths are resolved against the file's directory.
func Read(filePath string, logger logging.Logger) (*Job, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", filePath)
	}
	job, err := FromReader(filePath, bytes.NewReader(buf), logger)
	if err != nil {
		return nil, err
	}
	job.ResolvePaths(filepath.Dir(filePath))
	return job, nil
}

// FromReader reads a job from the given reader. originalPath selects JSON or YAML by its
// extension and names the job in errors.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Job, error) {
	format, err := utils.FormatFromPath(originalPath)
	if err != nil {
		return nil, err
	}

	// Quantization parameters left out of the file keep their defaults.
	job := Job{Quantization: multiview.DefaultConfig()}
	switch format {
	case utils.JSONFormat:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&job)
	case utils.YAMLFormat:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&job)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode job from %s", originalPath)
	}
	if err := job.Validate(originalPath); err != nil {
		return nil, err
	}
	UpdateJobFileDebug(job.Debug)
	logger.Debugw("read job", "path", originalPath, "reference_view", job.ReferenceView,
		"delta", job.Quantization.Delta, "workers", job.Quantization.Workers)
	return &job, nil
}
