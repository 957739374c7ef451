// Package trackstore persists multiview tracks in a SQLite database, one run per export.
package trackstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"go.viam.com/multiview/logging"
	"go.viam.com/multiview/track"
)

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		num_views INTEGER NOT NULL,
		reference_view INTEGER NOT NULL,
		delta REAL NOT NULL,
		num_tracks INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS candidates (
		run_id TEXT NOT NULL,
		track INTEGER NOT NULL,
		view INTEGER NOT NULL,
		time INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		PRIMARY KEY (run_id, track, view, time, rank),
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);
`

// ErrRunNotFound is returned when loading a run that was never saved.
var ErrRunNotFound = errors.New("run not found")

// Run describes one saved list of multiview tracks.
type Run struct {
	ID            string
	NumViews      int
	ReferenceView int
	Delta         float64
	NumTracks     int
	CreatedAt     time.Time
}

// Store saves and loads multiview track lists.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens or creates the database at path.
func Open(path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		utils.UncheckedError(db.Close())
		return nil, errors.Wrapf(err, "error creating schema in %s", path)
	}
	return &Store{db: db, logger: logger.Sublogger("trackstore")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the tracks as a new run and returns it. ID and CreatedAt are filled in when
// empty; NumTracks is taken from the tracks.
func (s *Store) Save(ctx context.Context, run Run, tracks []track.MultiviewTrack) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.NumTracks = len(tracks)
	for i, mt := range tracks {
		if len(mt) != run.NumViews {
			return Run{}, errors.Errorf("track %d has %d views, expected %d", i, len(mt), run.NumViews)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, err
	}
	defer func() {
		if err != nil {
			utils.UncheckedError(tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, num_views, reference_view, delta, num_tracks, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.NumViews, run.ReferenceView, run.Delta, run.NumTracks, run.CreatedAt.UnixNano(),
	); err != nil {
		return Run{}, errors.Wrap(err, "insert run")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO candidates (run_id, track, view, time, rank, x, y) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, err
	}
	defer utils.UncheckedErrorFunc(stmt.Close)

	count := 0
	for trackIdx, mt := range tracks {
		for view, candidates := range mt {
			for _, t := range candidates.Times() {
				for rank, p := range candidates[t] {
					if _, err = stmt.ExecContext(ctx, run.ID, trackIdx, view, t, rank, p.X, p.Y); err != nil {
						return Run{}, errors.Wrap(err, "insert candidate")
					}
					count++
				}
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return Run{}, err
	}
	s.logger.Infow("saved multiview tracks", "run", run.ID, "tracks", run.NumTracks, "candidates", count)
	return run, nil
}

// Runs lists the saved runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, num_views, reference_view, delta, num_tracks, created_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer utils.UncheckedErrorFunc(rows.Close)

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		createdAt int64
	)
	if err := row.Scan(&run.ID, &run.NumViews, &run.ReferenceView, &run.Delta, &run.NumTracks, &createdAt); err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(0, createdAt)
	return run, nil
}

// Load reads a run back. Times without candidates are not stored, so they are absent from the
// loaded tracks.
func (s *Store) Load(ctx context.Context, runID string) (Run, []track.MultiviewTrack, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT run_id, num_views, reference_view, delta, num_tracks, created_at
		FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, errors.Wrap(ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, nil, err
	}

	tracks := make([]track.MultiviewTrack, run.NumTracks)
	for i := range tracks {
		tracks[i] = track.NewMultiviewTrack(run.NumViews)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT track, view, time, x, y FROM candidates
		WHERE run_id = ? ORDER BY track, view, time, rank`, runID)
	if err != nil {
		return Run{}, nil, errors.Wrap(err, "query candidates")
	}
	defer utils.UncheckedErrorFunc(rows.Close)

	for rows.Next() {
		var (
			trackIdx, view, t int
			p                 r2.Point
		)
		if err := rows.Scan(&trackIdx, &view, &t, &p.X, &p.Y); err != nil {
			return Run{}, nil, err
		}
		if trackIdx < 0 || trackIdx >= len(tracks) || view < 0 || view >= run.NumViews {
			return Run{}, nil, errors.Errorf("candidate of track %d view %d out of range", trackIdx, view)
		}
		tracks[trackIdx][view][t] = append(tracks[trackIdx][view][t], p)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, err
	}
	return run, tracks, nil
}
