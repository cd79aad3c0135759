package service

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vertextoedge/txtfetch/internal/domain"
)

// Interleave zips the second half of items with the first half so that
// neighbours in a sorted list are spread apart:
//
//	[a b c d e] -> [d a e b c]
//
// The midpoint is rounded up, so for an odd length the first half is the
// longer one. The input is not modified.
func Interleave[T any](items []T) []T {
	n := len(items)
	out := make([]T, 0, n)
	if n < 2 {
		return append(out, items...)
	}

	mid := (n + 1) / 2
	first, second := items[:mid], items[mid:]
	for i := 0; i < len(first) || i < len(second); i++ {
		if i < len(second) {
			out = append(out, second[i])
		}
		if i < len(first) {
			out = append(out, first[i])
		}
	}
	return out
}

// SortByFileName orders tasks by destination file name using the root
// collation, so accented letters sort next to their base letter.
func SortByFileName(tasks []*domain.DownloadTask) {
	c := collate.New(language.Und)
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DestinationFileName, tasks[j].DestinationFileName
		if r := c.CompareString(a, b); r != 0 {
			return r < 0
		}
		return a < b
	})
}

// Schedule sorts tasks by file name and interleaves them. It returns a new
// slice; tasks itself is sorted in place.
func Schedule(tasks []*domain.DownloadTask) []*domain.DownloadTask {
	SortByFileName(tasks)
	return Interleave(tasks)
}
