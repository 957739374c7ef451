package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/multiview/camera"
	"go.viam.com/multiview/config"
	"go.viam.com/multiview/logging"
	"go.viam.com/multiview/track"
	"go.viam.com/multiview/trackstore"
)

type scene struct {
	dir              string
	tracks           string
	intrinsicsFormat string
	extrinsicsFormat string
	views            string
}

// writeScene writes two parallel cameras one unit apart, both looking along world +z, and a
// single track observed in the left one.
func writeScene(t *testing.T) scene {
	t.Helper()
	dir := t.TempDir()
	s := scene{
		dir:              dir,
		tracks:           filepath.Join(dir, "tracks.yaml"),
		intrinsicsFormat: filepath.Join(dir, "intrinsics", "%s.yaml"),
		extrinsicsFormat: filepath.Join(dir, "extrinsics", "%s.json"),
		views:            filepath.Join(dir, "views.txt"),
	}
	test.That(t, os.MkdirAll(filepath.Join(dir, "intrinsics"), 0o750), test.ShouldBeNil)
	test.That(t, os.MkdirAll(filepath.Join(dir, "extrinsics"), 0o750), test.ShouldBeNil)

	for view, center := range map[string]r3.Vector{"left": {}, "right": {X: 1}} {
		props, err := camera.NewPinholeProperties(500, 500, 320, 240, 0, 640, 480)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, camera.SaveProperties(fmt.Sprintf(s.intrinsicsFormat, view), props), test.ShouldBeNil)

		pose, err := camera.NewPose(mat.NewDense(3, 3, []float64{1, 0, 0, 0, -1, 0, 0, 0, -1}), center)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, camera.SavePose(fmt.Sprintf(s.extrinsicsFormat, view), pose), test.ShouldBeNil)
	}
	test.That(t, os.WriteFile(s.views, []byte("left\nright\n"), 0o600), test.ShouldBeNil)
	test.That(t, track.SaveList(s.tracks, []track.Observations{
		{3: {X: 320, Y: 240}, 4: {X: 300, Y: 250}},
	}), test.ShouldBeNil)
	return s
}

func TestPositionalArguments(t *testing.T) {
	s := writeScene(t)
	out := filepath.Join(s.dir, "multiview.yaml")
	logger := logging.NewTestLogger(t)

	err := mainWithArgs(context.Background(), []string{
		"find-multiview-tracks", "0", s.tracks, s.extrinsicsFormat, s.intrinsicsFormat, s.views, out,
	}, logger)
	test.That(t, err, test.ShouldBeNil)

	tracks, err := track.LoadMultiviewList(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tracks, test.ShouldHaveLength, 1)
	test.That(t, tracks[0], test.ShouldHaveLength, 2)

	reference := tracks[0][0]
	test.That(t, reference.Times(), test.ShouldResemble, []int{3, 4})
	test.That(t, reference[3], test.ShouldHaveLength, 1)
	test.That(t, reference[3][0].X, test.ShouldAlmostEqual, 320, 1e-9)
	test.That(t, reference[3][0].Y, test.ShouldAlmostEqual, 240, 1e-9)

	other := tracks[0][1]
	test.That(t, other.Times(), test.ShouldResemble, []int{3, 4})
	for _, time := range other.Times() {
		test.That(t, len(other[time]), test.ShouldBeGreaterThan, 1)
		for _, p := range other[time] {
			test.That(t, p.X, test.ShouldBeBetweenOrEqual, 0, 640)
			test.That(t, p.Y, test.ShouldBeBetweenOrEqual, 0, 480)
		}
	}
}

func TestJobFile(t *testing.T) {
	s := writeScene(t)
	db := filepath.Join(s.dir, "tracks.db")
	job := filepath.Join(s.dir, "job.yaml")
	test.That(t, os.WriteFile(job, []byte(fmt.Sprintf(`
reference_view: 1
tracks: tracks.yaml
intrinsics_format: %s
extrinsics_format: %s
view_names: [left, right]
output: multiview.json
quantization:
  delta: 4
`, s.intrinsicsFormat, s.extrinsicsFormat)), 0o600), test.ShouldBeNil)
	logger := logging.NewTestLogger(t)

	err := mainWithArgs(context.Background(), []string{
		"find-multiview-tracks", "-config", job, "-sqlite", db, "-delta", "2", "-workers", "2",
	}, logger)
	test.That(t, err, test.ShouldBeNil)

	tracks, err := track.LoadMultiviewList(filepath.Join(s.dir, "multiview.json"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tracks, test.ShouldHaveLength, 1)
	test.That(t, tracks[0][1].Times(), test.ShouldResemble, []int{3, 4})

	store, err := trackstore.Open(db, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, store.Close(), test.ShouldBeNil)
	}()
	runs, err := store.Runs(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, runs, test.ShouldHaveLength, 1)
	test.That(t, runs[0].ReferenceView, test.ShouldEqual, 1)
	test.That(t, runs[0].NumViews, test.ShouldEqual, 2)
	test.That(t, runs[0].Delta, test.ShouldEqual, 2)

	_, saved, err := store.Load(context.Background(), runs[0].ID)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, saved[0].NumCandidates(), test.ShouldEqual, tracks[0].NumCandidates())
}

func TestDebugFlag(t *testing.T) {
	s := writeScene(t)
	positional := []string{
		"0", s.tracks, s.extrinsicsFormat, s.intrinsicsFormat, s.views, filepath.Join(s.dir, "multiview.yaml"),
	}

	logger, logs := logging.NewObservedTestLogger(t)
	test.That(t, mainWithArgs(context.Background(),
		append([]string{"find-multiview-tracks"}, positional...), logger), test.ShouldBeNil)
	test.That(t, logs.FilterMessageSnippet("Quantized ray into").Len(), test.ShouldEqual, 0)

	logger, logs = logging.NewObservedTestLogger(t)
	test.That(t, mainWithArgs(context.Background(),
		append([]string{"find-multiview-tracks", "-debug"}, positional...), logger), test.ShouldBeNil)
	defer config.InitLoggingSettings(logger, false)
	quantized := logs.FilterMessageSnippet("Quantized ray into").All()
	test.That(t, len(quantized), test.ShouldBeGreaterThan, 0)
	for _, entry := range quantized {
		test.That(t, entry.LoggerName, test.ShouldEqual, "multiview")
		test.That(t, entry.ContextMap()["track"], test.ShouldEqual, int64(0))
	}
}

func TestArgumentErrors(t *testing.T) {
	s := writeScene(t)
	out := filepath.Join(s.dir, "multiview.yaml")
	logger := logging.NewTestLogger(t)

	for _, tc := range []struct {
		name     string
		args     []string
		expected string
	}{
		{"no arguments", nil, "Tracks"},
		{"reference out of range", []string{"2", s.tracks, s.extrinsicsFormat, s.intrinsicsFormat, s.views, out}, "out of range"},
		{"bad delta", []string{"-delta", "wide", "0", s.tracks, s.extrinsicsFormat, s.intrinsicsFormat, s.views, out}, "-delta"},
		{"negative delta", []string{"-delta", "-1", "0", s.tracks, s.extrinsicsFormat, s.intrinsicsFormat, s.views, out}, "Delta"},
		{"config and positionals", []string{"-config", "job.yaml", "0", s.tracks}, "cannot be combined"},
		{"missing camera", []string{"0", s.tracks, s.extrinsicsFormat, filepath.Join(s.dir, "nope", "%s.yaml"), s.views, out}, "nope"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := mainWithArgs(context.Background(), append([]string{"find-multiview-tracks"}, tc.args...), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.expected)
		})
	}
	_, err := os.Stat(out)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestCancelled(t *testing.T) {
	s := writeScene(t)
	out := filepath.Join(s.dir, "multiview.yaml")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mainWithArgs(ctx, []string{
		"find-multiview-tracks", "0", s.tracks, s.extrinsicsFormat, s.intrinsicsFormat, s.views, out,
	}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	_, statErr := os.Stat(out)
	test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)
}

func TestLogFileAndSchema(t *testing.T) {
	s := writeScene(t)
	out := filepath.Join(s.dir, "multiview.yaml")
	logFile := filepath.Join(s.dir, "logs", "run.log")

	err := mainWithArgs(context.Background(), []string{
		"find-multiview-tracks", "-log-file", logFile, "0", s.tracks, s.extrinsicsFormat, s.intrinsicsFormat, s.views, out,
	}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	contents, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "Loaded 1 single-view tracks")
	test.That(t, string(contents), test.ShouldContainSubstring, "Matching to 2 views")

	var buf bytes.Buffer
	stdout = &buf
	defer func() {
		stdout = os.Stdout
	}()
	err = mainWithArgs(context.Background(), []string{"find-multiview-tracks", "-schema"}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, `"intrinsics_format"`)
}
