package amplicon

import (
	"errors"
	"fmt"

	"github.com/cbg-ethz/cojac/internal/mutation"
	log "github.com/sirupsen/logrus"
)

// ErrNoVariantsProvided is returned when there is no signature to assign.
var ErrNoVariantsProvided = errors.New("no variants provided")

// Builder assigns variant signatures to amplicon windows.
type Builder struct {
	// Parser decodes the variant definitions' descriptors
	Parser *mutation.Parser

	// Categories merged into each signature, in increasing priority
	Categories []string

	// IncludeReverts adds the revert category to Categories
	IncludeReverts bool

	// MinCooccurrence is the number of mutations an amplicon needs to be kept
	MinCooccurrence int

	// ResolveSubsets labels an amplicon with the variants of its strict supersets
	ResolveSubsets bool
}

// NewBuilder returns a Builder with the default categories and a
// co-occurrence threshold of 2.
func NewBuilder(p *mutation.Parser) *Builder {
	return &Builder{
		Parser:          p,
		Categories:      mutation.DefaultCategories,
		MinCooccurrence: 2,
	}
}

// categories are those to load, the revert category last if requested.
func (b *Builder) categories() []string {
	cats := append([]string{}, b.Categories...)
	if b.IncludeReverts {
		cats = append(cats, mutation.RevertCategory)
	}
	return cats
}

// Build loads the signature of each definition and assigns them to the windows.
func (b *Builder) Build(windows []Window, defs []*mutation.Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, ErrNoVariantsProvided
	}

	cats := b.categories()
	sigs := make([]*mutation.Signature, 0, len(defs))
	for _, d := range defs {
		sig, err := b.Parser.Load(d, cats)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}

	return b.Assign(windows, sigs)
}

// Assign builds the catalog: every signature's mutations are binned into the
// windows, identical amplicons across variants are merged and, optionally,
// subsets are labelled with their supersets' variants.
func (b *Builder) Assign(windows []Window, sigs []*mutation.Signature) (*Catalog, error) {
	var usable []*mutation.Signature
	for _, sig := range sigs {
		if sig.Len() == 0 {
			log.WithField("variant", sig.Name).Warn("variant has no mutations, skipping")
			continue
		}
		usable = append(usable, sig)
	}
	if len(usable) == 0 {
		return nil, ErrNoVariantsProvided
	}

	c := &Catalog{}
	for _, sig := range usable {
		for _, e := range b.intervals(windows, sig) {
			if prev := c.identical(e); prev != nil {
				log.Debugf("%s is identical to %s", e.ID, prev.ID)
				prev.relabel(e.Variants)
				continue
			}
			c.Entries = append(c.Entries, e)
		}
	}

	if b.ResolveSubsets {
		c.reconcileSubsets()
	}
	c.sort()

	return c, nil
}

// intervals bins a signature's mutations into the windows, keeping those
// with enough co-occurring mutations.
func (b *Builder) intervals(windows []Window, sig *mutation.Signature) (entries []*Entry) {
	threshold := b.MinCooccurrence
	if sig.Len() == 1 {
		// a variant defined by a single mutation (ex: B.1, D614G)
		threshold = 1
	}
	if threshold < 1 {
		threshold = 1
	}

	for _, w := range windows {
		var sites []mutation.Site
		for _, s := range sig.Sites {
			if w.Start <= s.Position && s.Position <= w.End {
				sites = append(sites, s)
			}
		}

		if len(sites) >= threshold {
			entries = append(entries, newEntry(w, sig.Name, sites))
		}
	}

	return
}

// identical returns an entry, on the same amplicon, carrying exactly the
// same mutations as e.
func (c *Catalog) identical(e *Entry) *Entry {
	for _, prev := range c.Entries {
		if prev.Index == e.Index && prev.sameSites(e) {
			return prev
		}
	}
	return nil
}

// reconcileSubsets relabels every entry whose mutations are a strict subset of
// another entry's on the same amplicon: the subset's variant can't be told apart
// from the superset's there. All relabelings are computed against the
// catalog as it is before the pass, then applied together.
func (c *Catalog) reconcileSubsets() {
	groups := make(map[int][]*Entry)
	for _, e := range c.Entries {
		groups[e.Index] = append(groups[e.Index], e)
	}

	type relabeling struct {
		entry    *Entry
		variants []string
		from     string
	}
	var pending []relabeling

	for _, e := range c.Entries {
		small := e.siteSet()

		var variants []string
		for _, o := range groups[e.Index] {
			if o == e || len(o.Sites) < 2 || len(o.Sites) <= len(e.Sites) {
				continue
			}
			if subset(small, o.siteSet()) {
				variants = append(variants, o.Variants...)
			}
		}

		if len(variants) > 0 {
			pending = append(pending, relabeling{entry: e, variants: variants, from: e.ID})
		}
	}

	for _, r := range pending {
		r.entry.relabel(r.variants)
		log.Debugf("%s is a subset, relabeled %s", r.from, r.entry.ID)
	}

	if ids := c.duplicateIDs(); len(ids) > 0 {
		log.Warnf("amplicons sharing an ID after subset reconciliation: %v", ids)
	}
}

// subset is true if every member of a is in b.
func subset(a, b map[string]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// duplicateIDs lists IDs used by more than one entry.
func (c *Catalog) duplicateIDs() (ids []string) {
	seen := make(map[string]int)
	for _, e := range c.Entries {
		seen[e.ID]++
		if seen[e.ID] == 2 {
			ids = append(ids, e.ID)
		}
	}
	return
}

// String is a one line summary of the entry, ex: "76_al_be[23012A,23063T]".
func (e *Entry) String() string {
	s := e.ID + "["
	for i, site := range e.Sites {
		if i > 0 {
			s += ","
		}
		s += site.String()
	}
	return fmt.Sprintf("%s]", s)
}
