package utils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

type fileFixture struct {
	Name   string    `json:"name" yaml:"name"`
	Values []float64 `json:"values" yaml:"values"`
}

func TestFormatFromPath(t *testing.T) {
	format, err := FormatFromPath("a/b.JSON")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, format, test.ShouldEqual, JSONFormat)

	format, err = FormatFromPath("a/b.yml")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, format, test.ShouldEqual, YAMLFormat)

	_, err = FormatFromPath("a/b.txt")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, ".txt")
}

func TestEncodeDecodeFile(t *testing.T) {
	dir := t.TempDir()
	in := fileFixture{Name: "cam0", Values: []float64{1, 2.5, -3}}
	for _, name := range []string{"fixture.json", "fixture.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			test.That(t, EncodeFile(path, in), test.ShouldBeNil)
			var out fileFixture
			test.That(t, DecodeFile(path, &out), test.ShouldBeNil)
			test.That(t, out, test.ShouldResemble, in)
		})
	}

	bad := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(bad, []byte("{"), 0o600), test.ShouldBeNil)
	var out fileFixture
	err := DecodeFile(bad, &out)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, bad)

	err = DecodeFile(filepath.Join(dir, "missing.yaml"), &out)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestViewPath(t *testing.T) {
	test.That(t, ViewPath("intrinsics/%s.yaml", "cam1", ".json"), test.ShouldEqual, "intrinsics/cam1.yaml")
	test.That(t, ViewPath("poses", "cam1", ".json"), test.ShouldEqual, filepath.Join("poses", "cam1.json"))
}
