// Package amplicon derives query windows from a tiled primer scheme and
// assigns variant signatures to them, producing the amplicon catalog.
package amplicon

import "sort"

// Interval is one amplicon of a primer scheme, as listed in an insert BED.
type Interval struct {
	Ref    string
	Start  int
	End    int
	Label  string
	Pool   string
	Strand string
}

// Window is an amplicon and the sub-window that can be queried for reads
// without pulling in its neighbours.
type Window struct {
	// Index is the 1-based rank of the amplicon in the scheme
	Index int

	Ref   string
	Label string

	// Start and End of the amplicon itself
	Start int
	End   int

	// QStart and QStop are trimmed of the neighbouring amplicons' primers
	QStart int
	QStop  int
}

// WindowOptions control how the query sub-windows are trimmed.
type WindowOptions struct {
	// PrimerTrim is removed past the previous amplicon's end and before the next one's start
	PrimerTrim int

	// FallbackHalfWidth is used around the amplicon's center when trimming inverts the window
	FallbackHalfWidth int

	// Presorted skips sorting the intervals by (ref, start)
	Presorted bool
}

// DefaultWindowOptions trims 30bp of primer and falls back to center±5.
func DefaultWindowOptions() WindowOptions {
	return WindowOptions{PrimerTrim: 30, FallbackHalfWidth: 5}
}

// Windows builds the query window of every amplicon. Neighbours are only
// looked for on the same reference.
func Windows(intervals []Interval, opts WindowOptions) []Window {
	ivs := make([]Interval, len(intervals))
	copy(ivs, intervals)
	if !opts.Presorted {
		sort.SliceStable(ivs, func(i, j int) bool {
			if ivs[i].Ref != ivs[j].Ref {
				return ivs[i].Ref < ivs[j].Ref
			}
			return ivs[i].Start < ivs[j].Start
		})
	}

	windows := make([]Window, len(ivs))
	for i, iv := range ivs {
		w := Window{
			Index:  i + 1,
			Ref:    iv.Ref,
			Label:  iv.Label,
			Start:  iv.Start,
			End:    iv.End,
			QStart: iv.Start + opts.PrimerTrim,
			QStop:  iv.End - opts.PrimerTrim,
		}

		if i > 0 && ivs[i-1].Ref == iv.Ref {
			w.QStart = ivs[i-1].End + opts.PrimerTrim
		}
		if i < len(ivs)-1 && ivs[i+1].Ref == iv.Ref {
			w.QStop = ivs[i+1].Start - opts.PrimerTrim
		}

		// ultra-short amplicons, or neighbours overlapping past the trim
		if w.QStart >= w.QStop {
			center := (iv.Start + iv.End) / 2
			w.QStart = center - opts.FallbackHalfWidth
			w.QStop = center + opts.FallbackHalfWidth
		}

		windows[i] = w
	}

	return windows
}
