package timeline

import (
	"sort"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// Gesture bracket sentinels. The TTS server emits the CPRC_ spelling.
const (
	GestureStart = "GESTURE_START"
	GestureEnd   = "GESTURE_END"

	cprcGestureStart = "CPRC_GESTURE_START"
	cprcGestureEnd   = "CPRC_GESTURE_END"
)

// Viseme names forced inside a gesture bracket.
const (
	VisemeOpen   = "A-I"
	VisemeClosed = "M"
)

// Build merges the three tracks into one timeline ordered by start time, with
// markers before words before visemes on ties. The input slices are copied
// and never modified.
func Build(markers, words, visemes []ttypes.Event) ttypes.Timeline {
	tl := make(ttypes.Timeline, 0, len(markers)+len(words)+len(visemes))
	tl = append(tl, markers...)
	tl = append(tl, words...)
	tl = append(tl, visemes...)

	sort.SliceStable(tl, func(i, j int) bool {
		if tl[i].Start != tl[j].Start {
			return tl[i].Start < tl[j].Start
		}
		return tl[i].Kind.Rank() < tl[j].Kind.Rank()
	})

	rewriteGestures(tl)
	return tl
}

// rewriteGestures overwrites the visemes inside each gesture bracket in place.
// An unterminated bracket runs to the end of the timeline.
func rewriteGestures(tl ttypes.Timeline) {
	var group []int
	inGesture := false

	for i := range tl {
		ev := &tl[i]
		if ev.Kind == ttypes.KindMarker {
			switch {
			case isGestureStart(ev.Name):
				inGesture = true
			case isGestureEnd(ev.Name):
				if inGesture {
					overwrite(tl, group)
					group = group[:0]
				}
				inGesture = false
			}
			continue
		}
		if ev.Kind == ttypes.KindViseme && inGesture {
			group = append(group, i)
		}
	}

	if inGesture {
		overwrite(tl, group)
	}
}

// overwrite opens the mouth for the first half of the group and closes it
// for the rest. A single viseme stays open.
func overwrite(tl ttypes.Timeline, group []int) {
	switch n := len(group); {
	case n == 0:
		return
	case n == 1:
		tl[group[0]].Name = VisemeOpen
	default:
		mid := n / 2
		for _, idx := range group[:mid] {
			tl[idx].Name = VisemeOpen
		}
		for _, idx := range group[mid:] {
			tl[idx].Name = VisemeClosed
		}
	}
}

func isGestureStart(name string) bool {
	return name == GestureStart || name == cprcGestureStart
}

func isGestureEnd(name string) bool {
	return name == GestureEnd || name == cprcGestureEnd
}
