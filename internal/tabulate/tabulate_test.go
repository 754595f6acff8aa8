package tabulate

import (
	"bytes"
	"math"
	"testing"

	"github.com/cbg-ethz/cojac/internal/amplicon"
	"github.com/cbg-ethz/cojac/internal/mutation"
	"github.com/cbg-ethz/cojac/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() *amplicon.Catalog {
	return &amplicon.Catalog{Entries: []*amplicon.Entry{
		{ID: "2_al", Index: 2, Sites: []mutation.Site{{Position: 10, Allele: "T"}, {Position: 20, Allele: "G"}}},
		{ID: "10_al_de", Index: 10, Sites: []mutation.Site{
			{Position: 100, Allele: "T"}, {Position: 110, Allele: "G"}, {Position: 120, Allele: "-"},
		}},
	}}
}

func TestRows(t *testing.T) {
	table := scan.Table{
		"s1": {
			"2_al":     {Sites: scan.Histogram{1: 5, 2: 8}, Muts: scan.Histogram{1: 3, 2: 6}},
			"10_al_de": {Sites: scan.Histogram{2: 1}, Muts: scan.Histogram{1: 1}},
			"7_gone":   {Sites: scan.Histogram{1: 2}, Muts: scan.Histogram{1: 1}},
		},
	}

	rows := Rows(table, catalog())
	require.Len(t, rows, 3)

	byID := make(map[string]Row)
	for _, r := range rows {
		byID[r.Amplicon] = r
	}

	assert.Equal(t, Row{Sample: "s1", Amplicon: "2_al", Index: 2, Count: 8, MutAll: 6, MutOneless: 3, Frac: 0.75, Cooc: 2}, byID["2_al"])

	noCoverage := byID["10_al_de"]
	assert.Equal(t, 3, noCoverage.Cooc)
	assert.Equal(t, 0, noCoverage.Count)
	assert.True(t, math.IsNaN(noCoverage.Frac))

	// not in the catalog: a single site, so no "oneless"
	gone := byID["7_gone"]
	assert.Equal(t, 7, gone.Index)
	assert.Equal(t, 1, gone.Cooc)
	assert.Equal(t, 2, gone.Count)
	assert.Equal(t, 0, gone.MutOneless)
	assert.Equal(t, 0.5, gone.Frac)
}

func TestWrite(t *testing.T) {
	rows := []Row{
		{Sample: "s2", Amplicon: "2_al", Index: 2, Count: 4, MutAll: 1, Frac: 0.25, Cooc: 2},
		{Sample: "s1", Amplicon: "10_al", Index: 10, Count: 2, MutAll: 2, MutOneless: 0, Frac: 1, Cooc: 2},
		{Sample: "s1", Amplicon: "2_al", Index: 2, Count: 1, MutAll: 0, MutOneless: 1, Frac: 0, Cooc: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))
	assert.Equal(t, "sample\tamplicon\tcount\tmut_all\tmut_oneless\tfrac\tcooc\n"+
		"s1\t2_al\t1\t0\t1\t0.000000\t2\n"+
		"s1\t10_al\t2\t2\t0\t1.000000\t2\n"+
		"s2\t2_al\t4\t1\t0\t0.250000\t2\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "sample\tamplicon\tcount\tmut_all\tmut_oneless\tfrac\tcooc\n", buf.String())
}
