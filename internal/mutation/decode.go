// Package mutation decodes mutation descriptors and turns variant definitions
// into position sorted signatures.
package mutation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrParse is returned for a descriptor that matches none of the known forms.
	ErrParse = errors.New("cannot parse mutation")

	// ErrUnsupportedFeature is returned for insertion descriptors ("+ACGT").
	ErrUnsupportedFeature = errors.New("unsupported feature")
)

// descriptor grammar, in priority order:
//   - substitution, optionally prefixed with the reference: "C", "CAT", "G>C", "GTC>CAT"
//   - deletion run: "-", "---"
//   - insertion: "+TATA"
const descriptorPattern = `^(?:(?:(?:(?P<ref>[ATCG]+)>)?(?P<mut>[ATCG]+))|(?P<del>-+)|(?:\+(?P<ins>[ATGC]+)))$`

// Parser decodes mutation descriptors into alleles. A single Parser is
// shared by every component that reads variant definitions.
type Parser struct {
	rx *regexp.Regexp

	mut, del, ins int
}

// NewParser compiles the descriptor grammar.
func NewParser() *Parser {
	rx := regexp.MustCompile(descriptorPattern)
	return &Parser{
		rx:  rx,
		mut: rx.SubexpIndex("mut"),
		del: rx.SubexpIndex("del"),
		ins: rx.SubexpIndex("ins"),
	}
}

// Decode strips the reference part of a descriptor and returns the allele:
// a run of bases for substitutions or a run of '-' for deletions.
func (p *Parser) Decode(raw string) (string, error) {
	m := p.rx.FindStringSubmatch(raw)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrParse, raw)
	}

	switch {
	case m[p.mut] != "":
		return m[p.mut], nil
	case m[p.del] != "":
		return m[p.del], nil
	case m[p.ins] != "":
		return "", fmt.Errorf("%w: insertion %q", ErrUnsupportedFeature, raw)
	}

	return "", fmt.Errorf("%w: %q", ErrParse, raw)
}

// Site is a single mutation: a 1-based genomic position and the allele
// expected there. The allele length is the number of reference positions
// the site spans.
type Site struct {
	Position int
	Allele   string
}

// String renders the compact form used to compare sites, ex: "28881A".
func (s Site) String() string {
	return strconv.Itoa(s.Position) + s.Allele
}

// Deletion is true if the allele is a run of '-'.
func (s Site) Deletion() bool {
	return s.Allele != "" && strings.Trim(s.Allele, "-") == ""
}
