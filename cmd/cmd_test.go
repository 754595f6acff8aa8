package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cbg-ethz/cojac/internal/amplicon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func Test_mutbamscan_amplicons(t *testing.T) {
	dir := t.TempDir()
	bed := write(t, filepath.Join(dir, "inserts.bed"),
		"ref\t100\t200\t1\t1\t+\nref\t190\t310\t2\t2\t+\nref\t300\t400\t3\t1\t+\n")
	voc := filepath.Join(dir, "voc")
	write(t, filepath.Join(voc, "al.yaml"), "variant:\n  short: al\nmut:\n  140: A>T\n  150: C>G\n  250: G>A\n")
	amps := filepath.Join(dir, "amplicons.yaml")

	scanF = scanFlags{}
	_, err := run(t, "cooc-mutbamscan", "-b", bed, "-m", voc, "-A", amps)
	require.NoError(t, err)

	f, err := os.Open(amps)
	require.NoError(t, err)
	defer f.Close()
	c, err := amplicon.ReadCatalog(f)
	require.NoError(t, err)

	require.Equal(t, 1, c.Len())
	e := c.Get("1_al")
	require.NotNil(t, e)
	assert.Equal(t, 130, e.Window.QStart)
	assert.Equal(t, 160, e.Window.QStop)
	assert.Equal(t, map[int]string{140: "T", 150: "G"}, e.Mutations())

	// without alignments, nor amplicons to write, there is nothing to do
	scanF = scanFlags{}
	_, err = run(t, "cooc-mutbamscan", "-b", bed, "-m", voc)
	assert.Error(t, err)

	// missing alignments fail the command, after writing the others' results
	scanF = scanFlags{}
	jsonOut := filepath.Join(dir, "cooc.json")
	_, err = run(t, "cooc-mutbamscan", "-b", bed, "-m", voc, "-j", jsonOut, filepath.Join(dir, "missing.bam"))
	assert.Error(t, err)
	data, err := os.ReadFile(jsonOut)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func Test_phe2cojac(t *testing.T) {
	phe := write(t, filepath.Join(t.TempDir(), "slinky-antennae.yml"), `unique-id: slinky-antennae
phe-label: VOC-21JAN-02
belongs-to-lineage:
- PANGO: P.1
calling-definition:
  probable:
    mutations-required: 1
    indels-required: 0
variants:
- gene: S
  one-based-reference-position: 23063
  reference-base: A
  type: SNP
  variant-base: T
`)

	out, err := run(t, "phe2cojac", "-s", "BR", phe)
	require.NoError(t, err)
	assert.Contains(t, out, "short: BR\n")
	assert.Contains(t, out, "mut:\n  # S\n  23063: 'A>T'\n")
}

func Test_tabmut(t *testing.T) {
	dir := t.TempDir()
	results := write(t, filepath.Join(dir, "cooc.json"),
		`{"s1": {"1_al": {"sites": {"1": 3, "2": 4}, "muts": {"1": 1, "2": 2}}}}`)
	amps := write(t, filepath.Join(dir, "amplicons.yaml"),
		"1_al:\n- 100\n- 200\n- 130\n- 160\n- 140: T\n  150: G\n")

	out, err := run(t, "cooc-tabmut", "-j", results, "-a", amps)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "sample\tamplicon\tcount\tmut_all\tmut_oneless\tfrac\tcooc", lines[0])
	assert.Equal(t, "s1\t1_al\t4\t2\t1\t0.500000\t2", lines[1])
}

func Test_filePrepender(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"root", "docs/cojac.md", "title: cojac\nnav_order: 0\nhas_children: true\npermalink: /\n"},
		{"child", "docs/cojac_cooc-tabmut.md", "title: cooc-tabmut\nparent: cojac\nnav_order: 1\n"},
		{"unknown", "docs/cojac_other.md", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filePrepender(tt.filename)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.want)
		})
	}

	assert.Equal(t, "/", linkHandler("cojac.md"))
	assert.Equal(t, "cojac_phe2cojac", linkHandler("cojac_phe2cojac.md"))
}
