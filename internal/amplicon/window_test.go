package amplicon

import (
	"testing"
)

func TestWindows(t *testing.T) {
	opts := DefaultWindowOptions()

	type span struct{ qstart, qstop int }

	tests := []struct {
		name      string
		intervals []Interval
		want      []span
	}{
		{
			"tiled",
			[]Interval{
				{Ref: "ref", Start: 100, End: 200},
				{Ref: "ref", Start: 190, End: 310},
				{Ref: "ref", Start: 300, End: 400},
			},
			[]span{{130, 160}, {230, 270}, {340, 370}},
		},
		{
			"unsorted input",
			[]Interval{
				{Ref: "ref", Start: 300, End: 400},
				{Ref: "ref", Start: 100, End: 200},
				{Ref: "ref", Start: 190, End: 310},
			},
			[]span{{130, 160}, {230, 270}, {340, 370}},
		},
		{
			"too close, fall back to center",
			[]Interval{
				{Ref: "ref", Start: 100, End: 140},
				{Ref: "ref", Start: 140, End: 180},
			},
			[]span{{115, 125}, {155, 165}},
		},
		{
			"odd center truncated",
			[]Interval{{Ref: "ref", Start: 100, End: 141}},
			[]span{{115, 125}},
		},
		{
			"neighbours only on the same reference",
			[]Interval{
				{Ref: "a", Start: 100, End: 200},
				{Ref: "b", Start: 150, End: 300},
			},
			[]span{{130, 170}, {180, 270}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Windows(tt.intervals, opts)
			if len(got) != len(tt.want) {
				t.Fatalf("Windows() returned %d windows, want %d", len(got), len(tt.want))
			}
			for i, w := range got {
				if w.Index != i+1 {
					t.Errorf("window %d has index %d", i, w.Index)
				}
				if w.QStart >= w.QStop {
					t.Errorf("window %d inverted: %d >= %d", i, w.QStart, w.QStop)
				}
				if (span{w.QStart, w.QStop}) != tt.want[i] {
					t.Errorf("window %d = (%d, %d), want %v", i, w.QStart, w.QStop, tt.want[i])
				}
			}
		})
	}
}

func TestWindows_presorted(t *testing.T) {
	intervals := []Interval{
		{Ref: "ref", Start: 300, End: 400},
		{Ref: "ref", Start: 100, End: 200},
	}
	opts := DefaultWindowOptions()
	opts.Presorted = true

	got := Windows(intervals, opts)
	if got[0].Start != 300 || got[1].Start != 100 {
		t.Fatalf("presorted intervals were reordered: %+v", got)
	}
	// next amplicon starts before this one: 100-30 < 330, fall back to center
	if got[0].QStart != 345 || got[0].QStop != 355 {
		t.Errorf("first window = (%d, %d)", got[0].QStart, got[0].QStop)
	}
}
