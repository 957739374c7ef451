package track

import (
	"strings"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestSummaryTable(t *testing.T) {
	first := NewMultiviewTrack(2)
	first[0][1] = []r2.Point{{X: 1, Y: 1}}
	first[0][2] = []r2.Point{{X: 2, Y: 2}}
	first[1][1] = []r2.Point{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 7, Y: 5}}
	second := NewMultiviewTrack(2)
	second[0][7] = []r2.Point{{X: 3, Y: 3}}

	rendered := SummaryTable([]MultiviewTrack{first, second}, []string{"left", "right"})
	lines := strings.Split(rendered, "\n")

	var left, right string
	for _, line := range lines {
		switch {
		case strings.Contains(line, "left"):
			left = line
		case strings.Contains(line, "right"):
			right = line
		}
	}
	test.That(t, strings.Fields(strings.ReplaceAll(left, "|", " ")), test.ShouldResemble, []string{"0", "left", "3", "3"})
	test.That(t, strings.Fields(strings.ReplaceAll(right, "|", " ")), test.ShouldResemble, []string{"1", "right", "1", "3"})

	// Views beyond the names given are labelled by index.
	rendered = SummaryTable([]MultiviewTrack{first}, nil)
	test.That(t, rendered, test.ShouldContainSubstring, "view 1")
}
