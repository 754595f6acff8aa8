package mutation

import (
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// DefaultCategories are the mutation categories merged into a signature:
//   - mut: defining mutations
//   - extra: not officially defining but still specific
//   - shared: also found outside the variant (ex: common ancestor)
//   - subset: only found in some of the variant's sequences
var DefaultCategories = []string{"mut", "extra", "shared", "subset"}

// RevertCategory lists mutations reverting to the reference.
const RevertCategory = "revert"

// Variant is the metadata block of a variant definition.
type Variant struct {
	Short      string `yaml:"short"`
	Pangolin   string `yaml:"pangolin,omitempty"`
	Nextstrain string `yaml:"nextstrain,omitempty"`
	VOC        string `yaml:"voc,omitempty"`
}

// Definition is a variant definition document: metadata plus named
// categories, each mapping a 1-based position to a raw descriptor.
type Definition struct {
	Variant    Variant
	Categories map[string]map[int]string
}

// UnmarshalYAML reads the "variant" block and every top-level key that holds
// a position to descriptor map. Other keys (source, threshold, ...) are ignored.
func (d *Definition) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var meta struct {
		Variant Variant `yaml:"variant"`
	}
	if err := unmarshal(&meta); err != nil {
		return err
	}

	var doc map[string]interface{}
	if err := unmarshal(&doc); err != nil {
		return err
	}

	d.Variant = meta.Variant
	d.Categories = make(map[string]map[int]string)
	for key, value := range doc {
		if key == "variant" {
			continue
		}
		entries, ok := value.(map[interface{}]interface{})
		if !ok {
			continue
		}

		category, ok := positionMap(entries)
		if !ok {
			continue
		}
		d.Categories[key] = category
	}

	return nil
}

// positionMap converts a YAML map with integer keys. ok is false if any key
// isn't a position.
func positionMap(entries map[interface{}]interface{}) (category map[int]string, ok bool) {
	category = make(map[int]string, len(entries))
	for k, v := range entries {
		pos, isInt := k.(int)
		if !isInt {
			return nil, false
		}
		if s, isString := v.(string); isString {
			category[pos] = s
		} else {
			category[pos] = fmt.Sprint(v) // rejected later by the parser
		}
	}
	return category, true
}

// ParseDefinition parses a variant definition document.
func ParseDefinition(data []byte) (*Definition, error) {
	d := &Definition{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to parse variant definition: %v", err)
	}
	if d.Variant.Short == "" {
		return nil, errors.New("failed to parse variant definition: no variant.short name")
	}
	return d, nil
}

// Signature is the set of mutations defining a variant, sorted by position.
type Signature struct {
	Name  string
	Sites []Site
}

// Len is the number of mutation sites.
func (s *Signature) Len() int {
	return len(s.Sites)
}

// Mutations returns the signature as a position to allele map.
func (s *Signature) Mutations() map[int]string {
	muts := make(map[int]string, len(s.Sites))
	for _, site := range s.Sites {
		muts[site.Position] = site.Allele
	}
	return muts
}

// Load merges the categories of a definition into a single signature.
// Categories later in the list win on positions they share with earlier ones.
// Insertions are dropped with a warning, any other undecodable descriptor
// fails the load.
func (p *Parser) Load(def *Definition, categories []string) (*Signature, error) {
	merged := make(map[int]string)
	for _, c := range categories {
		entries, ok := def.Categories[c]
		if !ok {
			continue
		}

		for pos, raw := range entries {
			allele, err := p.Decode(raw)
			if errors.Is(err, ErrUnsupportedFeature) {
				log.WithFields(log.Fields{
					"variant":  def.Variant.Short,
					"position": pos,
				}).Warnf("insertions not supported (yet): %s", raw)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("variant %s, position %d: %w", def.Variant.Short, pos, err)
			}
			merged[pos] = allele
		}
	}

	sig := &Signature{Name: def.Variant.Short}
	for pos, allele := range merged {
		sig.Sites = append(sig.Sites, Site{Position: pos, Allele: allele})
	}
	sort.Slice(sig.Sites, func(i, j int) bool {
		return sig.Sites[i].Position < sig.Sites[j].Position
	})

	return sig, nil
}
