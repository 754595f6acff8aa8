package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/cbg-ethz/cojac/internal/amplicon"
	"github.com/cbg-ethz/cojac/internal/scan"
	"github.com/go-gota/gota/dataframe"
	"gopkg.in/yaml.v2"
)

// WriteJSON writes the scan results as sample -> amplicon -> {sites, muts}.
func WriteJSON(w io.Writer, t scan.Table) error {
	output, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize the scan results: %v", err)
	}
	_, err = w.Write(append(output, '\n'))
	return err
}

// ReadJSON reads scan results written by WriteJSON.
func ReadJSON(r io.Reader) (scan.Table, error) {
	var t scan.Table
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse the scan results: %v", err)
	}
	return t, nil
}

// WriteYAML writes the scan results with samples sorted and amplicons in
// catalog order.
func WriteYAML(w io.Writer, t scan.Table, c *amplicon.Catalog) error {
	out := make(yaml.MapSlice, 0, len(t))
	for _, sample := range t.Samples() {
		amps := make(yaml.MapSlice, 0, len(t[sample]))
		for _, id := range amplicons(t[sample], c) {
			amps = append(amps, yaml.MapItem{Key: id, Value: t[sample][id]})
		}
		out = append(out, yaml.MapItem{Key: sample, Value: amps})
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to serialize the scan results: %v", err)
	}
	_, err = w.Write(data)
	return err
}

// amplicons lists the IDs of a sample's results in catalog order. IDs not in
// the catalog come last, sorted.
func amplicons(results map[string]*scan.Result, c *amplicon.Catalog) []string {
	ids := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	if c != nil {
		for _, e := range c.Entries {
			if _, ok := results[e.ID]; ok {
				ids = append(ids, e.ID)
				seen[e.ID] = true
			}
		}
	}

	var rest []string
	for id := range results {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)

	return append(ids, rest...)
}

// histogramRow is one bin of a result histogram in the long-format table.
type histogramRow struct {
	Sample    string `dataframe:"sample"`
	Amplicon  string `dataframe:"amplicon"`
	Histogram string `dataframe:"histogram"`
	Count     int    `dataframe:"count"`
	Templates int    `dataframe:"templates"`
}

// TSVHeader are the columns of WriteTSV.
var TSVHeader = []string{"sample", "amplicon", "histogram", "count", "templates"}

// WriteTSV writes the scan results in long format: one row per sample,
// amplicon, histogram ("sites" or "muts") and site count.
func WriteTSV(w io.Writer, t scan.Table, c *amplicon.Catalog) error {
	var rows []histogramRow
	for _, sample := range t.Samples() {
		for _, id := range amplicons(t[sample], c) {
			res := t[sample][id]
			for _, h := range []struct {
				name string
				hist scan.Histogram
			}{{"sites", res.Sites}, {"muts", res.Muts}} {
				counts := make([]int, 0, len(h.hist))
				for n := range h.hist {
					counts = append(counts, n)
				}
				sort.Ints(counts)

				for _, n := range counts {
					rows = append(rows, histogramRow{
						Sample:    sample,
						Amplicon:  id,
						Histogram: h.name,
						Count:     n,
						Templates: h.hist[n],
					})
				}
			}
		}
	}

	if len(rows) == 0 {
		return WriteRecords(w, [][]string{TSVHeader})
	}
	return WriteDataFrame(w, dataframe.LoadStructs(rows))
}

// WriteDataFrame writes a dataframe, header included, as TSV.
func WriteDataFrame(w io.Writer, df dataframe.DataFrame) error {
	if df.Err != nil {
		return df.Err
	}
	return WriteRecords(w, df.Records())
}

// WriteRecords writes rows of strings as TSV.
func WriteRecords(w io.Writer, records [][]string) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	if err := tw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write TSV: %v", err)
	}
	return nil
}
