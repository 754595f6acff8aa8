package amplicon

import (
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strconv"
	"strings"

	"github.com/cbg-ethz/cojac/internal/mutation"
	"gopkg.in/yaml.v2"
)

// Entry is one amplicon of the catalog: a window and the mutations of one or
// more variants that fall within it.
type Entry struct {
	// ID is "{index}_{variant}[_{variant}...]"
	ID string

	// Index is the amplicon's rank in the primer scheme
	Index int

	// Variants whose signature yields exactly these mutations on this amplicon, sorted
	Variants []string

	Window Window

	// Sites sorted by position
	Sites []mutation.Site
}

// newEntry makes an entry for a single variant.
func newEntry(w Window, variant string, sites []mutation.Site) *Entry {
	e := &Entry{
		Index:  w.Index,
		Window: w,
		Sites:  sites,
	}
	e.relabel([]string{variant})
	return e
}

// relabel sets the variants of the entry (a sorted union with the current ones)
// and rebuilds its ID.
func (e *Entry) relabel(variants []string) {
	seen := make(map[string]bool)
	var names []string
	for _, v := range append(append([]string{}, e.Variants...), variants...) {
		if !seen[v] {
			seen[v] = true
			names = append(names, v)
		}
	}
	sort.Strings(names)

	e.Variants = names
	e.ID = fmt.Sprintf("%d_%s", e.Index, strings.Join(names, "_"))
}

// Mutations returns the entry's sites as a position to allele map.
func (e *Entry) Mutations() map[int]string {
	muts := make(map[int]string, len(e.Sites))
	for _, s := range e.Sites {
		muts[s.Position] = s.Allele
	}
	return muts
}

// sameSites is true if both entries carry identical mutations.
func (e *Entry) sameSites(o *Entry) bool {
	if len(e.Sites) != len(o.Sites) {
		return false
	}
	for i := range e.Sites {
		if e.Sites[i] != o.Sites[i] {
			return false
		}
	}
	return true
}

// siteSet is the set of compact mutation strings, ex: "28881A".
func (e *Entry) siteSet() map[string]bool {
	set := make(map[string]bool, len(e.Sites))
	for _, s := range e.Sites {
		set[s.String()] = true
	}
	return set
}

// Catalog is the ordered collection of amplicons to query.
type Catalog struct {
	Entries []*Entry
}

// Get returns the entry with the given ID or nil.
func (c *Catalog) Get(id string) *Entry {
	for _, e := range c.Entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Len is the number of amplicons in the catalog.
func (c *Catalog) Len() int {
	return len(c.Entries)
}

// sort orders entries by amplicon index, then by ID.
func (c *Catalog) sort() {
	sort.SliceStable(c.Entries, func(i, j int) bool {
		if c.Entries[i].Index != c.Entries[j].Index {
			return c.Entries[i].Index < c.Entries[j].Index
		}
		return c.Entries[i].ID < c.Entries[j].ID
	})
}

// MarshalYAML writes the catalog as
//
//	{id}: [start, end, qstart, qstop, {position: allele, ...}]
//
// keeping entry and position order.
func (c *Catalog) MarshalYAML() (interface{}, error) {
	out := make(yaml.MapSlice, 0, len(c.Entries))
	for _, e := range c.Entries {
		muts := make(yaml.MapSlice, 0, len(e.Sites))
		for _, s := range e.Sites {
			muts = append(muts, yaml.MapItem{Key: s.Position, Value: s.Allele})
		}
		out = append(out, yaml.MapItem{
			Key: e.ID,
			Value: []interface{}{
				e.Window.Start,
				e.Window.End,
				e.Window.QStart,
				e.Window.QStop,
				muts,
			},
		})
	}
	return out, nil
}

// UnmarshalYAML reads the layout written by MarshalYAML.
func (c *Catalog) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var doc yaml.MapSlice
	if err := unmarshal(&doc); err != nil {
		return err
	}

	c.Entries = nil
	for _, item := range doc {
		id := fmt.Sprint(item.Key)
		e, err := parseEntry(id, item.Value)
		if err != nil {
			return fmt.Errorf("failed to parse amplicon %s: %v", id, err)
		}
		c.Entries = append(c.Entries, e)
	}

	return nil
}

// parseEntry reads one [start, end, qstart, qstop, {pos: allele}] value.
func parseEntry(id string, value interface{}) (*Entry, error) {
	fields, ok := value.([]interface{})
	if !ok || len(fields) != 5 {
		return nil, fmt.Errorf("expected [start, end, qstart, qstop, mutations], got %v", value)
	}

	var coords [4]int
	for i := range coords {
		n, ok := fields[i].(int)
		if !ok {
			return nil, fmt.Errorf("coordinate %v is not an integer", fields[i])
		}
		coords[i] = n
	}

	e := &Entry{
		ID: id,
		Window: Window{
			Start:  coords[0],
			End:    coords[1],
			QStart: coords[2],
			QStop:  coords[3],
		},
	}

	// "{index}_{variants}", variants may themselves hold underscores
	parts := strings.SplitN(id, "_", 2)
	if index, err := strconv.Atoi(parts[0]); err == nil {
		e.Index = index
		e.Window.Index = index
	}
	if len(parts) == 2 {
		e.Variants = strings.Split(parts[1], "_")
	}

	muts, ok := fields[4].(yaml.MapSlice)
	if !ok && fields[4] != nil {
		return nil, fmt.Errorf("mutations %v are not a mapping", fields[4])
	}
	for _, m := range muts {
		pos, ok := m.Key.(int)
		if !ok {
			return nil, fmt.Errorf("mutation position %v is not an integer", m.Key)
		}
		allele, ok := m.Value.(string)
		if !ok {
			return nil, fmt.Errorf("allele %v at %d is not a string", m.Value, pos)
		}
		e.Sites = append(e.Sites, mutation.Site{Position: pos, Allele: allele})
	}

	return e, nil
}

// WriteCatalog serializes the catalog as YAML.
func WriteCatalog(w io.Writer, c *Catalog) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize amplicons: %v", err)
	}
	_, err = w.Write(out)
	return err
}

// ReadCatalog parses a catalog written by WriteCatalog.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
