package track

import (
	"bufio"
	"os"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	mvutils "go.viam.com/multiview/utils"
)

type pointConfig struct {
	T int     `json:"t" yaml:"t"`
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type trackConfig struct {
	Points []pointConfig `json:"points" yaml:"points"`
}

type listConfig struct {
	Tracks []trackConfig `json:"tracks" yaml:"tracks"`
}

type candidatesConfig struct {
	T          int         `json:"t" yaml:"t"`
	Candidates [][]float64 `json:"candidates" yaml:"candidates,flow"`
}

type viewConfig struct {
	Points []candidatesConfig `json:"points" yaml:"points"`
}

type multiviewTrackConfig struct {
	Views []viewConfig `json:"views" yaml:"views"`
}

type multiviewListConfig struct {
	NumViews int                    `json:"num_views" yaml:"num_views"`
	Tracks   []multiviewTrackConfig `json:"tracks" yaml:"tracks"`
}

// LoadList reads a list of single-view tracks from a JSON or YAML file.
func LoadList(path string) ([]Observations, error) {
	var cfg listConfig
	if err := mvutils.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	tracks := make([]Observations, 0, len(cfg.Tracks))
	for i, tc := range cfg.Tracks {
		observations := make(Observations, len(tc.Points))
		for _, p := range tc.Points {
			if _, ok := observations[p.T]; ok {
				return nil, errors.Errorf("%s: track %d has more than one point at time %d", path, i, p.T)
			}
			observations[p.T] = r2.Point{X: p.X, Y: p.Y}
		}
		tracks = append(tracks, observations)
	}
	return tracks, nil
}

// SaveList writes a list of single-view tracks to a JSON or YAML file.
func SaveList(path string, tracks []Observations) error {
	cfg := listConfig{Tracks: make([]trackConfig, 0, len(tracks))}
	for _, observations := range tracks {
		tc := trackConfig{Points: make([]pointConfig, 0, len(observations))}
		for _, t := range observations.Times() {
			p := observations[t]
			tc.Points = append(tc.Points, pointConfig{T: t, X: p.X, Y: p.Y})
		}
		cfg.Tracks = append(cfg.Tracks, tc)
	}
	return mvutils.EncodeFile(path, &cfg)
}

// LoadMultiviewList reads a list of multiview tracks from a JSON or YAML file.
func LoadMultiviewList(path string) ([]MultiviewTrack, error) {
	var cfg multiviewListConfig
	if err := mvutils.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	tracks := make([]MultiviewTrack, 0, len(cfg.Tracks))
	for i, tc := range cfg.Tracks {
		if len(tc.Views) != cfg.NumViews {
			return nil, errors.Errorf("%s: track %d has %d views, expected %d", path, i, len(tc.Views), cfg.NumViews)
		}
		mt := NewMultiviewTrack(cfg.NumViews)
		for view, vc := range tc.Views {
			for _, pc := range vc.Points {
				positions := make([]r2.Point, 0, len(pc.Candidates))
				for _, c := range pc.Candidates {
					if len(c) != 2 {
						return nil, errors.Errorf("%s: track %d view %d time %d has a candidate with %d coordinates",
							path, i, view, pc.T, len(c))
					}
					positions = append(positions, r2.Point{X: c[0], Y: c[1]})
				}
				mt[view][pc.T] = positions
			}
		}
		tracks = append(tracks, mt)
	}
	return tracks, nil
}

// SaveMultiviewList writes a list of multiview tracks, all with numViews views, to a JSON or
// YAML file.
func SaveMultiviewList(path string, numViews int, tracks []MultiviewTrack) error {
	cfg := multiviewListConfig{NumViews: numViews, Tracks: make([]multiviewTrackConfig, 0, len(tracks))}
	for i, mt := range tracks {
		if len(mt) != numViews {
			return errors.Errorf("track %d has %d views, expected %d", i, len(mt), numViews)
		}
		tc := multiviewTrackConfig{Views: make([]viewConfig, 0, numViews)}
		for _, candidates := range mt {
			vc := viewConfig{Points: make([]candidatesConfig, 0, len(candidates))}
			for _, t := range candidates.Times() {
				pc := candidatesConfig{T: t, Candidates: make([][]float64, 0, len(candidates[t]))}
				for _, p := range candidates[t] {
					pc.Candidates = append(pc.Candidates, []float64{p.X, p.Y})
				}
				vc.Points = append(vc.Points, pc)
			}
			tc.Views = append(tc.Views, vc)
		}
		cfg.Tracks = append(cfg.Tracks, tc)
	}
	return mvutils.EncodeFile(path, &cfg)
}

// ReadLines reads the non-empty lines of a text file, such as a list of view names.
func ReadLines(path string) ([]string, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	return lines, nil
}
