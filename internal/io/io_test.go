package io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cbg-ethz/cojac/internal/amplicon"
	"github.com/cbg-ethz/cojac/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertBED = `track name=inserts
# ARTIC v3
MN908947.3	54	385	1	1	+
MN908947.3	342	704	2	2	+
MN908947.3	664	1004	3	1	+
`

func TestReadBED(t *testing.T) {
	intervals, err := ReadBED(strings.NewReader(insertBED))
	require.NoError(t, err)

	require.Len(t, intervals, 3)
	assert.Equal(t, amplicon.Interval{
		Ref:    "MN908947.3",
		Start:  342,
		End:    704,
		Label:  "2",
		Pool:   "2",
		Strand: "+",
	}, intervals[1])
}

func TestReadBED_minimal(t *testing.T) {
	intervals, err := ReadBED(strings.NewReader("ref\t10\t20\nref\t15\t30\n"))
	require.NoError(t, err)
	assert.Equal(t, []amplicon.Interval{
		{Ref: "ref", Start: 10, End: 20},
		{Ref: "ref", Start: 15, End: 30},
	}, intervals)
}

func TestReadBED_errors(t *testing.T) {
	tests := []struct {
		name string
		bed  string
	}{
		{"empty", "# nothing\n"},
		{"two columns", "ref\t10\n"},
		{"start not a number", "ref\tten\t20\n"},
		{"stop not a number", "ref\t10\ttwenty\n"},
		{"inverted", "ref\t20\t10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBED(strings.NewReader(tt.bed))
			assert.Error(t, err)
		})
	}
}

func TestSamples(t *testing.T) {
	rows, err := ReadSamples(strings.NewReader("A1\t20210101\t250\nB2\t0042\t250\n"))
	require.NoError(t, err)
	assert.Equal(t, []SampleRow{{"A1", "20210101"}, {"B2", "0042"}}, rows)

	samples := Samples(rows, "working/samples", "")
	assert.Equal(t, scan.Sample{
		Name: "A1",
		Path: filepath.Join("working", "samples", "A1", "20210101", "alignments", "REF_aln.bam"),
	}, samples[0])

	samples = Samples(rows, "working/samples", "/")
	assert.Equal(t, "B2/0042", samples[1].Name)

	_, err = ReadSamples(strings.NewReader("only-one-column\n"))
	assert.Error(t, err)
}

func TestReadVariantDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b_delta.yaml": "variant:\n  short: de\nmut:\n  23604: C>G\n",
		"a_alpha.yml":  "variant:\n  short: al\nmut:\n  23063: A>T\n",
		".hidden.yaml": "not: [valid",
		"README.md":    "# variants",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	defs, err := ReadVariantDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "al", defs[0].Variant.Short)
	assert.Equal(t, "de", defs[1].Variant.Short)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c_broken.yaml"), []byte("mut:\n  1: A>T\n"), 0644))
	_, err = ReadVariantDir(dir)
	assert.Error(t, err)

	_, err = ReadVariantDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func testTable() (scan.Table, *amplicon.Catalog) {
	t := scan.Table{
		"s2": {
			"1_al": {Sites: scan.Histogram{1: 4}, Muts: scan.Histogram{}},
		},
		"s1": {
			"2_de":    {Sites: scan.Histogram{1: 1}, Muts: scan.Histogram{1: 1}},
			"1_al":    {Sites: scan.Histogram{2: 1, 1: 3}, Muts: scan.Histogram{1: 1}},
			"9_other": {Sites: scan.Histogram{}, Muts: scan.Histogram{}},
		},
	}
	c := &amplicon.Catalog{Entries: []*amplicon.Entry{{ID: "1_al", Index: 1}, {ID: "2_de", Index: 2}}}
	return t, c
}

func TestWriteJSON(t *testing.T) {
	table, _ := testTable()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, table))
	assert.Contains(t, buf.String(), `"sites": {`)

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, table, got)

	_, err = ReadJSON(strings.NewReader("[1, 2]"))
	assert.Error(t, err)
}

func TestWriteYAML(t *testing.T) {
	table, c := testTable()

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, table, c))
	out := buf.String()

	// samples sorted, amplicons in catalog order, unknown amplicons last
	order := []string{"s1:", "1_al:", "2_de:", "9_other:", "s2:"}
	last := -1
	for _, key := range order {
		i := strings.Index(out, key)
		require.True(t, i > last, "%s out of order in\n%s", key, out)
		last = i
	}
	assert.Contains(t, out, "    sites:\n      1: 3\n      2: 1\n")
}

func TestWriteTSV(t *testing.T) {
	table, c := testTable()
	delete(table, "s1")

	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, table, c))
	assert.Equal(t, "sample\tamplicon\thistogram\tcount\ttemplates\n"+
		"s2\t1_al\tsites\t1\t4\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteTSV(&buf, scan.Table{}, c))
	assert.Equal(t, "sample\tamplicon\thistogram\tcount\ttemplates\n", buf.String())
}
