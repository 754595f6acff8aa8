// Package scan tallies, per amplicon, how many templates (read pairs) cover
// each mutation site and how many of those carry the mutant allele.
package scan

import "errors"

// ErrMissingAlignmentSource is returned when a sample's alignment file can't be found.
var ErrMissingAlignmentSource = errors.New("missing alignment source")

// NoRef marks a query base without a reference position (soft clip, insertion).
const NoRef = -1

// Read is one aligned mate of a template.
type Read struct {
	// Name is the query name shared by both mates
	Name string

	// Second is true for the second-in-pair mate
	Second bool

	// Start and End are the 0-based, half-open, reference span of the alignment
	Start int
	End   int

	// RefPos holds, for every query base, its 0-based reference position or NoRef
	RefPos []int

	// Seq is the query sequence
	Seq []byte
}

// Source is an indexed, read only, collection of aligned reads.
type Source interface {
	// References lists the reference names in the source's header
	References() []string

	// Fetch returns the reads overlapping [start, end) (0-based) on ref
	Fetch(ref string, start, end int) ([]*Read, error)

	// Close releases the source
	Close() error
}

// Opener opens the Source of a sample's alignment file.
type Opener func(path string) (Source, error)
