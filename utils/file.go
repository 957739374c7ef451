// Package utils contains helpers shared by the multiview packages.
package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gopkg.in/yaml.v3"
)

// FileFormat is the serialization used for a file on disk.
type FileFormat string

const (
	// JSONFormat is used for files ending in .json.
	JSONFormat = FileFormat("json")
	// YAMLFormat is used for files ending in .yaml or .yml.
	YAMLFormat = FileFormat("yaml")
)

// FormatFromPath picks the serialization from the file extension.
func FormatFromPath(path string) (FileFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONFormat, nil
	case ".yaml", ".yml":
		return YAMLFormat, nil
	default:
		return "", errors.Errorf("unsupported file extension %q, expected .json, .yaml or .yml", filepath.Ext(path))
	}
}

// DecodeFile reads the file at path into v, as JSON or YAML depending on its extension.
func DecodeFile(path string, v interface{}) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	switch format {
	case JSONFormat:
		err = json.NewDecoder(f).Decode(v)
	case YAMLFormat:
		err = yaml.NewDecoder(f).Decode(v)
	}
	return errors.Wrapf(err, "error decoding %s", path)
}

// EncodeFile writes v to path, as JSON or YAML depending on its extension. The file is
// created or truncated.
func EncodeFile(path string, v interface{}) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	switch format {
	case JSONFormat:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(v)
	case YAMLFormat:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(v); err == nil {
			err = enc.Close()
		}
	}
	if err != nil {
		return errors.Wrapf(err, "error encoding %s", path)
	}
	//nolint:gosec
	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "error writing %s", path)
}

// ViewPath substitutes a view name into a path format such as "intrinsics/%s.yaml". Formats
// without a verb are treated as directories and get "<view>" appended with the extension ext.
func ViewPath(format, view, ext string) string {
	if strings.Contains(format, "%s") {
		return strings.Replace(format, "%s", view, 1)
	}
	return filepath.Join(format, view+ext)
}
