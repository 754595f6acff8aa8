// Package tabulate turns scan histograms into a co-occurrence table: per
// sample and amplicon, how many templates cover all of the amplicon's
// mutation sites and how many of those carry all of the mutations.
package tabulate

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cbg-ethz/cojac/internal/amplicon"
	cio "github.com/cbg-ethz/cojac/internal/io"
	"github.com/cbg-ethz/cojac/internal/scan"
	"github.com/go-gota/gota/dataframe"
	log "github.com/sirupsen/logrus"
)

// Header are the columns of the table.
var Header = []string{"sample", "amplicon", "count", "mut_all", "mut_oneless", "frac", "cooc"}

// Row is the co-occurrence of one amplicon in one sample.
type Row struct {
	Sample   string `dataframe:"sample"`
	Amplicon string `dataframe:"amplicon"`

	// Index orders amplicons, it isn't written
	Index int `dataframe:"index"`

	// Count of templates covering all the sites
	Count int `dataframe:"count"`

	// MutAll is the count of templates with all the mutations
	MutAll int `dataframe:"mut_all"`

	// MutOneless is the count of templates with all mutations but one
	MutOneless int `dataframe:"mut_oneless"`

	// Frac is MutAll / Count, NaN without coverage
	Frac float64 `dataframe:"frac"`

	// Cooc is the number of sites of the amplicon
	Cooc int `dataframe:"cooc"`
}

// Rows computes the table. The number of sites of an amplicon comes from the
// catalog or, for amplicons missing from it, from the widest histogram bin.
func Rows(t scan.Table, c *amplicon.Catalog) []Row {
	var rows []Row
	for sample, results := range t {
		for id, res := range results {
			row := Row{Sample: sample, Amplicon: id, Index: index(id)}

			if e := catalogEntry(c, id); e != nil {
				row.Index = e.Index
				row.Cooc = len(e.Sites)
			} else {
				row.Cooc = widest(res)
				log.WithFields(log.Fields{"sample": sample, "amplicon": id}).
					Debugf("amplicon not in catalog, assuming %d sites", row.Cooc)
			}
			if row.Cooc < 1 {
				continue
			}

			row.Count = res.Sites[row.Cooc]
			row.MutAll = res.Muts[row.Cooc]
			if row.Cooc > 1 {
				row.MutOneless = res.Muts[row.Cooc-1]
			}
			row.Frac = math.NaN()
			if row.Count > 0 {
				row.Frac = float64(row.MutAll) / float64(row.Count)
			}

			rows = append(rows, row)
		}
	}
	return rows
}

func catalogEntry(c *amplicon.Catalog, id string) *amplicon.Entry {
	if c == nil {
		return nil
	}
	return c.Get(id)
}

// index reads the amplicon number prefixing an ID, "72_al_de" is 72.
func index(id string) int {
	n, _ := strconv.Atoi(strings.SplitN(id, "_", 2)[0])
	return n
}

func widest(res *scan.Result) (n int) {
	for k := range res.Sites {
		if k > n {
			n = k
		}
	}
	return n
}

// Frame sorts the rows by sample, amplicon number then ID.
func Frame(rows []Row) dataframe.DataFrame {
	df := dataframe.LoadStructs(rows)
	if df.Err != nil {
		return df
	}

	return df.Arrange(
		dataframe.Sort("sample"),
		dataframe.Sort("index"),
		dataframe.Sort("amplicon"),
	).Drop("index")
}

// Write writes the sorted table as TSV.
func Write(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return cio.WriteRecords(w, [][]string{Header})
	}
	return cio.WriteDataFrame(w, Frame(rows))
}
