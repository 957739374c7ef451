package track

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SummaryTable renders, for every view, how many times and candidate positions the tracks
// hold in it. Views without a name are labelled by index.
func SummaryTable(tracks []MultiviewTrack, views []string) string {
	numViews := len(views)
	for _, mt := range tracks {
		if len(mt) > numViews {
			numViews = len(mt)
		}
	}
	times := make([]int, numViews)
	positions := make([]int, numViews)
	for _, mt := range tracks {
		for view, candidates := range mt {
			times[view] += len(candidates)
			for _, ps := range candidates {
				positions[view] += len(ps)
			}
		}
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "View", "Times", "Candidates"})
	for view := 0; view < numViews; view++ {
		name := fmt.Sprintf("view %d", view)
		if view < len(views) {
			name = views[view]
		}
		t.AppendRow(table.Row{view, name, times[view], positions[view]})
	}
	t.AppendFooter(table.Row{"", "Tracks", len(tracks), sum(positions)})
	return t.Render()
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
