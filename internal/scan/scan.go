package scan

import (
	"fmt"

	"github.com/cbg-ethz/cojac/internal/amplicon"
	"github.com/cbg-ethz/cojac/internal/mutation"
	log "github.com/sirupsen/logrus"
)

// Histogram maps a count of sites to the number of templates with that count.
type Histogram map[int]int

// Result is the tally of one amplicon.
type Result struct {
	// Sites: number of mutation sites covered -> number of templates
	Sites Histogram `json:"sites" yaml:"sites"`

	// Muts: number of sites showing the mutant allele -> number of templates
	Muts Histogram `json:"muts" yaml:"muts"`
}

// Scanner scans the amplicons of a catalog against one alignment source.
type Scanner struct {
	Source Source

	// Reference to fetch reads from
	Reference string

	log *log.Entry
}

// NewScanner makes a scanner over src. If reference is empty the first
// reference of the source is used.
func NewScanner(src Source, reference string, logger *log.Entry) (*Scanner, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	if reference == "" {
		refs := src.References()
		if len(refs) == 0 {
			return nil, fmt.Errorf("failed to find a reference in the alignment header")
		}
		reference = refs[0]
		logger.WithField("reference", reference).Warn("no reference given, auto-detected from the alignment's first reference")
	}

	return &Scanner{
		Source:    src,
		Reference: reference,
		log:       logger,
	}, nil
}

// ScanCatalog scans every amplicon of the catalog. Amplicons without
// mutations are skipped.
func (s *Scanner) ScanCatalog(c *amplicon.Catalog) (map[string]*Result, error) {
	results := make(map[string]*Result, c.Len())
	for _, e := range c.Entries {
		res, err := s.ScanAmplicon(e)
		if err != nil {
			return nil, err
		}
		if res != nil {
			results[e.ID] = res
		}
	}
	return results, nil
}

// ScanAmplicon groups the reads in the amplicon's query window by template and
// tallies the sites covered and mutated. It returns nil for amplicons
// without mutations.
func (s *Scanner) ScanAmplicon(e *amplicon.Entry) (*Result, error) {
	if len(e.Sites) < 1 {
		return nil, nil
	}

	reads, err := s.Source.Fetch(s.Reference, e.Window.QStart, e.Window.QStop)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reads of amplicon %s: %w", e.ID, err)
	}

	templates := pair(reads)
	res := tally(templates, e.Sites)
	s.log.WithFields(log.Fields{
		"amplicon":  e.ID,
		"templates": len(templates),
	}).Debugf("sites: %v, muts: %v", res.Sites, res.Muts)

	return res, nil
}

// template is a sequenced fragment: up to two mates sharing a query name.
type template struct {
	first, second *Read
}

// pair groups reads by query name. A later mate replaces an earlier one.
func pair(reads []*Read) []*template {
	var templates []*template
	byName := make(map[string]*template)
	for _, r := range reads {
		t, ok := byName[r.Name]
		if !ok {
			t = &template{}
			byName[r.Name] = t
			templates = append(templates, t)
		}
		if r.Second {
			t.second = r
		} else {
			t.first = r
		}
	}
	return templates
}

// tally counts, over all templates, the distinct sites covered by either
// mate and the distinct sites where either mate shows the mutation.
func tally(templates []*template, sites []mutation.Site) *Result {
	res := &Result{Sites: Histogram{}, Muts: Histogram{}}

	for _, t := range templates {
		covered := make(map[int]bool)
		mutant := make(map[int]bool)
		for _, r := range []*Read{t.first, t.second} {
			if r == nil {
				continue
			}
			found, muts := Inspect(r, sites)
			for _, p := range found {
				covered[p] = true
			}
			for _, p := range muts {
				mutant[p] = true
			}
		}

		if len(covered) == 0 {
			continue
		}
		res.Sites[len(covered)]++
		if len(mutant) > 0 {
			res.Muts[len(mutant)]++
		}
	}

	return res
}

// Verdict is the outcome of checking one covered site of a read.
type Verdict int

const (
	// Reference (or any other non mutant allele) was observed
	Reference Verdict = iota

	// Mutant allele was observed
	Mutant

	// Undetermined: the span is partially deleted in the read
	Undetermined
)

// Inspect returns the positions of the sites whose span lies within the read's
// alignment, and those of them where the read shows the mutant allele.
func Inspect(r *Read, sites []mutation.Site) (found, muts []int) {
	var covered []mutation.Site
	for _, s := range sites {
		// 0-based span [p-1, p-1+len)
		if r.Start <= s.Position-1 && s.Position-1+len(s.Allele) <= r.End {
			covered = append(covered, s)
			found = append(found, s.Position)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}

	bases := make(map[int]byte, len(r.RefPos))
	for i, pos := range r.RefPos {
		if pos != NoRef && i < len(r.Seq) {
			bases[pos] = r.Seq[i]
		}
	}

	for _, s := range covered {
		if check(bases, s) == Mutant {
			muts = append(muts, s.Position)
		}
	}

	return found, muts
}

// check compares the allele with the bases of a read at a covered site.
func check(bases map[int]byte, s mutation.Site) Verdict {
	present := 0
	for i := range s.Allele {
		if _, ok := bases[s.Position-1+i]; ok {
			present++
		}
	}

	switch present {
	case len(s.Allele):
		for i := range s.Allele {
			if bases[s.Position-1+i] != s.Allele[i] {
				return Reference
			}
		}
		return Mutant
	case 0:
		// the whole span is deleted in the read
		if s.Deletion() {
			return Mutant
		}
		return Reference
	default:
		// TODO: partial deletions spanning the site's boundary get no verdict
		return Undetermined
	}
}
