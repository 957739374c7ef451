// Package main matches single-view point tracks to the candidate positions of the same points
// in every other calibrated view.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/multiview/camera"
	"go.viam.com/multiview/config"
	"go.viam.com/multiview/logging"
	"go.viam.com/multiview/multiview"
	"go.viam.com/multiview/track"
	"go.viam.com/multiview/trackstore"
)

var (
	logger = logging.NewLogger("find-multiview-tracks")

	stdout io.Writer = os.Stdout
)

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ViewIndex        int    `flag:"0,usage=zero-based index of the reference view in the view list"`
	Tracks           string `flag:"1,usage=single-view tracks of the reference view"`
	ExtrinsicsFormat string `flag:"2,usage=extrinsics file format with %s for the view name"`
	IntrinsicsFormat string `flag:"3,usage=intrinsics file format with %s for the view name"`
	Views            string `flag:"4,usage=file listing one view name per line"`
	MultiviewTracks  string `flag:"5,usage=output multiview track list"`

	Config  string `flag:"config,usage=job file replacing the positional arguments"`
	Delta   string `flag:"delta,usage=pixel spacing between candidates"`
	Workers int    `flag:"workers,usage=number of concurrent units or 0 for one per CPU"`
	SQLite  string `flag:"sqlite,usage=also save the result to this SQLite database"`
	LogFile string `flag:"log-file,usage=also write logs to this file"`
	Schema  bool   `flag:"schema,usage=print the JSON schema of job files and exit"`
	Debug   bool   `flag:"debug,usage=log at debug level"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Schema {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(config.Schema())
	}
	if argsParsed.LogFile != "" {
		appender := logging.NewFileAppender(argsParsed.LogFile)
		logger.AddAppender(appender)
		defer utils.UncheckedErrorFunc(appender.Close)
	}
	config.InitLoggingSettings(logger, argsParsed.Debug)

	job, err := jobFromArguments(argsParsed, logger)
	if err != nil {
		return err
	}
	return findMultiviewTracks(ctx, job, logger)
}

func jobFromArguments(argsParsed Arguments, logger logging.Logger) (*config.Job, error) {
	var job *config.Job
	if argsParsed.Config != "" {
		if argsParsed.Tracks != "" {
			return nil, errors.New("positional arguments cannot be combined with -config")
		}
		var err error
		if job, err = config.Read(argsParsed.Config, logger); err != nil {
			return nil, err
		}
	} else {
		job = &config.Job{
			ReferenceView:    argsParsed.ViewIndex,
			Tracks:           argsParsed.Tracks,
			ExtrinsicsFormat: argsParsed.ExtrinsicsFormat,
			IntrinsicsFormat: argsParsed.IntrinsicsFormat,
			Views:            argsParsed.Views,
			Output:           argsParsed.MultiviewTracks,
			Quantization:     multiview.DefaultConfig(),
		}
	}

	if argsParsed.Delta != "" {
		delta, err := strconv.ParseFloat(argsParsed.Delta, 64)
		if err != nil {
			return nil, errors.Wrap(err, "error parsing -delta")
		}
		job.Quantization.Delta = delta
	}
	if argsParsed.Workers != 0 {
		job.Quantization.Workers = argsParsed.Workers
	}
	if argsParsed.SQLite != "" {
		job.SQLite = argsParsed.SQLite
	}
	if err := job.Validate("arguments"); err != nil {
		return nil, err
	}
	return job, nil
}

func findMultiviewTracks(ctx context.Context, job *config.Job, logger logging.Logger) (err error) {
	tracks, err := track.LoadList(job.Tracks)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %d single-view tracks", len(tracks))

	views, err := job.ViewList()
	if err != nil {
		return err
	}
	logger.Infof("Matching to %d views", len(views))
	if job.ReferenceView >= len(views) {
		return errors.Errorf("reference view %d out of range, only %d views", job.ReferenceView, len(views))
	}

	cameras, err := camera.LoadCameras(ctx, views, job.IntrinsicsFormat, job.ExtrinsicsFormat)
	if err != nil {
		return err
	}

	builder, err := multiview.NewBuilder(cameras, job.ReferenceView, job.Quantization, logger)
	if err != nil {
		return err
	}

	undistorted := track.CalibrateAndUndistortList(tracks, cameras[job.ReferenceView].Properties, logger)
	multiviewTracks, err := builder.FindMultiviewTracks(ctx, undistorted)
	if multiviewTracks == nil {
		return err
	}
	if err != nil {
		// Units that failed are left empty; the rest of the result is still written.
		logger.Warn("writing partial multiview tracks")
	}

	if saveErr := track.SaveMultiviewList(job.Output, len(views), multiviewTracks); saveErr != nil {
		return saveErr
	}
	logger.Infof("Wrote %d multiview tracks to %s\n%s",
		len(multiviewTracks), job.Output, track.SummaryTable(multiviewTracks, views))

	if job.SQLite != "" {
		store, openErr := trackstore.Open(job.SQLite, logger)
		if openErr != nil {
			return openErr
		}
		defer utils.UncheckedErrorFunc(store.Close)
		run, saveErr := store.Save(ctx, trackstore.Run{
			NumViews:      len(views),
			ReferenceView: job.ReferenceView,
			Delta:         job.Quantization.Delta,
		}, multiviewTracks)
		if saveErr != nil {
			return saveErr
		}
		logger.Infow("saved run", "path", job.SQLite, "run", run.ID)
	}
	return err
}
