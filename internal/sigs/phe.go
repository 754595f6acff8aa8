// Package sigs generates cojac variant definitions from third party
// sources: phe-genomics definitions and the pango consensus summary.
package sigs

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// PheMutation is one entry of the "variants" list of a phe-genomics definition.
type PheMutation struct {
	Gene            string `yaml:"gene"`
	Position        int    `yaml:"one-based-reference-position"`
	Protein         string `yaml:"protein"`
	Type            string `yaml:"type"`
	ReferenceBase   string `yaml:"reference-base"`
	VariantBase     string `yaml:"variant-base"`
	AminoAcidChange string `yaml:"amino-acid-change"`
	PredictedEffect string `yaml:"predicted-effect"`
}

// PheDefinition is a phe-genomics variant definition.
type PheDefinition struct {
	UniqueID string              `yaml:"unique-id"`
	Label    string              `yaml:"phe-label"`
	Lineages []map[string]string `yaml:"belongs-to-lineage"`
	Sources  []string            `yaml:"information-sources"`
	Calling  struct {
		Probable struct {
			MutationsRequired int `yaml:"mutations-required"`
			IndelsRequired    int `yaml:"indels-required"`
		} `yaml:"probable"`
	} `yaml:"calling-definition"`
	Mutations []PheMutation `yaml:"variants"`
}

// ParsePhe parses a phe-genomics variant definition.
func ParsePhe(data []byte) (*PheDefinition, error) {
	d := &PheDefinition{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to parse phe-genomics definition: %v", err)
	}
	if d.UniqueID == "" {
		return nil, fmt.Errorf("failed to parse phe-genomics definition: no unique-id")
	}
	return d, nil
}

// shortify builds a short name from the first two letters of the first two
// words of a unique id: "slinky-antennae" is "slan".
var shortify = regexp.MustCompile(`^([a-z]{2})[^-]*-([a-z]{2})`)

// section is a category of the converted document, one line per mutation.
type section struct {
	category string
	gene     string
	lines    bytes.Buffer
}

// Document is a cojac variant definition converted from phe-genomics.
// Mutations are written by hand to keep gene headers and amino acid changes
// as comments.
type Document struct {
	Short string

	header   yaml.MapSlice
	sections []*section
}

// ConvertPhe converts a phe-genomics definition. If short is empty it is
// derived from the unique id. SNPs and MNPs go in "mut", indels in "extra"
// unless the definition requires indels.
func ConvertPhe(d *PheDefinition, short string) (*Document, error) {
	if short == "" {
		m := shortify.FindStringSubmatch(d.UniqueID)
		if m == nil {
			return nil, fmt.Errorf("cannot derive a short name from unique-id %q, give one", d.UniqueID)
		}
		short = m[1] + m[2]
	}

	variant := yaml.MapSlice{
		{Key: "voc", Value: d.Label},
		{Key: "pheuid", Value: d.UniqueID},
		{Key: "short", Value: short},
	}
	for _, lineage := range d.Lineages {
		for system, name := range lineage {
			switch system {
			case "PANGO":
				variant = append(variant, yaml.MapItem{Key: "pangolin", Value: name})
			case "nextstrain":
				variant = append(variant, yaml.MapItem{Key: "nextstrain", Value: name})
			default:
				log.Warnf("unknown lineage system %s: %s", system, name)
			}
		}
	}

	doc := &Document{
		Short: short,
		header: yaml.MapSlice{
			{Key: "variant", Value: variant},
			{Key: "source", Value: d.Sources},
			{Key: "threshold", Value: d.Calling.Probable.MutationsRequired},
		},
	}

	snvs := &section{category: "mut"}
	indels := snvs
	if d.Calling.Probable.IndelsRequired == 0 {
		indels = &section{category: "extra"}
	}
	doc.sections = []*section{snvs}
	if indels != snvs {
		doc.sections = append(doc.sections, indels)
	}

	for _, m := range d.Mutations {
		var (
			s    *section
			line string
		)
		switch m.Type {
		case "SNP", "MNP":
			s = snvs
			line = fmt.Sprintf("  %d: '%s>%s'", m.Position, m.ReferenceBase, m.VariantBase)
		case "deletion":
			n := len(m.ReferenceBase) - len(m.VariantBase)
			if n < 1 {
				return nil, fmt.Errorf("deletion at %d doesn't shorten %s to %s", m.Position, m.ReferenceBase, m.VariantBase)
			}
			s = indels
			line = fmt.Sprintf("  %d: '%s'", m.Position+1, strings.Repeat("-", n))
		case "insertion":
			if len(m.VariantBase) <= len(m.ReferenceBase) {
				return nil, fmt.Errorf("insertion at %d doesn't lengthen %s to %s", m.Position, m.ReferenceBase, m.VariantBase)
			}
			s = indels
			line = fmt.Sprintf("  %d: '+%s'", m.Position+1, m.VariantBase[len(m.ReferenceBase):])
		default:
			log.Warnf("skipping %s at %d: unknown type", m.Type, m.Position)
			continue
		}

		switch {
		case m.AminoAcidChange != "" && m.Protein != "":
			line += fmt.Sprintf(" # %s:%s", m.Protein, m.AminoAcidChange)
		case m.AminoAcidChange != "":
			line += " # " + m.AminoAcidChange
		case m.PredictedEffect == "synonymous" && m.Protein != "":
			line += " # syn " + m.Protein
		case m.PredictedEffect == "synonymous":
			line += " # syn"
		}

		if m.Gene != s.gene {
			s.gene = m.Gene
			fmt.Fprintf(&s.lines, "  # %s\n", m.Gene)
		}
		s.lines.WriteString(line + "\n")
	}

	return doc, nil
}

// FileName is the default output name, "{short}_mutations.yaml".
func (d *Document) FileName() string {
	return strings.ToLower(d.Short) + "_mutations.yaml"
}

// Write writes the metadata then every non empty category.
func (d *Document) Write(w io.Writer) error {
	header, err := yaml.Marshal(d.header)
	if err != nil {
		return fmt.Errorf("failed to serialize variant metadata: %v", err)
	}
	if _, err := w.Write(header); err != nil {
		return err
	}

	for _, s := range d.sections {
		if s.lines.Len() == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s:\n%s", s.category, s.lines.String()); err != nil {
			return err
		}
	}
	return nil
}
