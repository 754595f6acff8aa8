package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cbg-ethz/cojac/config"
	"github.com/cbg-ethz/cojac/internal/alignment"
	"github.com/cbg-ethz/cojac/internal/amplicon"
	cio "github.com/cbg-ethz/cojac/internal/io"
	"github.com/cbg-ethz/cojac/internal/mutation"
	"github.com/cbg-ethz/cojac/internal/scan"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scanFlags are the output and input paths of mutbamscan, those that aren't settings
type scanFlags struct {
	samples    string
	alignments []string
	outAmp     string
	inAmp      string
	json       string
	yaml       string
	tsv        string
	dump       bool
}

var scanF scanFlags

// mutbamscanCmd represents the cooc-mutbamscan command
var mutbamscanCmd = &cobra.Command{
	Use:     "cooc-mutbamscan [flags] [BAM...]",
	Aliases: []string{"mutbamscan"},
	Short:   "Scan amplicons for reads with co-occurring mutations",
	Long: `Scan amplicons for reads with co-occurring mutations

The amplicons of the BED (--bedfile) are given the mutations of every variant
of the variants directory (--vocdir). Amplicons with at least --cooc mutations
of a variant are kept and the reads of each sample are scanned for them:
for every amplicon, a histogram of read pairs per number of mutation sites
covered ("sites") and per number of sites with the mutation ("muts").

Samples are either the BAMs given with --alignments (or as arguments), or
read from a V-pipe samples TSV (--samples) with the alignment of each
sample in {prefix}/{sample}/{batch}/alignments/REF_aln.bam.

The amplicons can be saved (--out-amp) and reused (--in-amp), skipping
the BED and the variants directory.`,
	Example: `  cojac cooc-mutbamscan -b nCoV-2019.insert.bed -m voc/ -s samples.tsv -j cooc.json
  cojac cooc-mutbamscan -m voc/ -A amplicons.yaml
  cojac cooc-mutbamscan -Q amplicons.yaml -a sample1.bam sample2.bam -y cooc.yaml`,
	RunE: runMutBamScan,
}

func init() {
	rootCmd.AddCommand(mutbamscanCmd)

	f := mutbamscanCmd.Flags()

	// inputs
	f.StringVarP(&scanF.samples, "samples", "s", "", "V-pipe samples list TSV")
	f.StringSliceVarP(&scanF.alignments, "alignments", "a", nil, "alignment files")
	f.StringP("batchname", "/", "", "concatenate samplename{SEP}batchname from samples TSV")
	f.StringP("prefix", "p", "working/samples", "V-pipe work directory prefix where to look for alignments of the samples TSV")
	f.StringP("reference", "r", "", "reference to query, the first of the alignment if empty")
	f.StringP("vocdir", "m", "./voc", "directory of variant definitions (YAML)")
	f.StringP("bedfile", "b", "./nCoV-2019.insert.bed", "BED of the amplicons: ref, start, stop, amp_num, pool, strand")
	f.IntP("cooc", "#", 2, "minimum number of co-occurring mutations an amplicon must have")
	f.StringSlice("categories", []string{"mut", "extra", "shared", "subset"}, "categories of the variant definitions to use")
	f.Bool("reverts", false, "also use the \"revert\" category")
	f.Bool("subsets", false, "label amplicons whose mutations are a subset of another variant's with both variants")
	f.Int("primer-trim", 30, "bases trimmed from each end of the query window for the neighbours' primers")
	f.Int("half-width", 5, "half width of the query window around the amplicon's center when trimming leaves nothing")
	f.IntP("workers", "w", 1, "samples scanned in parallel")

	// amplicons
	f.StringVarP(&scanF.outAmp, "out-amp", "A", "", "write the amplicons to a YAML file")
	f.StringVarP(&scanF.inAmp, "in-amp", "Q", "", "read the amplicons from a YAML file instead of building them")

	// outputs
	f.StringVarP(&scanF.json, "json", "j", "", "write results to a JSON file")
	f.StringVarP(&scanF.yaml, "yaml", "y", "", "write results to a YAML file")
	f.StringVarP(&scanF.tsv, "tsv", "t", "", "write results to a TSV file")
	f.BoolVarP(&scanF.dump, "dump", "d", false, "print the results (default when no JSON or YAML output)")

	mutbamscanCmd.MarkFlagsMutuallyExclusive("samples", "alignments")
	mutbamscanCmd.MarkFlagsMutuallyExclusive("in-amp", "out-amp")

	for key, flag := range map[string]string{
		"batchname":          "batchname",
		"prefix":             "prefix",
		"reference":          "reference",
		"vocdir":             "vocdir",
		"bedfile":            "bedfile",
		"cooc":               "cooc",
		"categories":         "categories",
		"reverts":            "reverts",
		"subsets":            "subsets",
		"window.primer-trim": "primer-trim",
		"window.half-width":  "half-width",
		"workers":            "workers",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}
}

func runMutBamScan(cmd *cobra.Command, args []string) error {
	c, err := config.New()
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(c)
	if err != nil {
		return err
	}
	log.Infof("%d amplicons", catalog.Len())

	if scanF.outAmp != "" {
		if err := writeTo(scanF.outAmp, func(f *os.File) error { return amplicon.WriteCatalog(f, catalog) }); err != nil {
			return err
		}
	}

	samples, err := scanSamples(c, append(scanF.alignments, args...))
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		if scanF.outAmp != "" {
			return nil // only building the amplicons
		}
		return errors.New("no alignments given, use --samples or --alignments")
	}

	batch := &scan.Batch{
		Catalog:   catalog,
		Open:      alignment.OpenSource,
		Reference: c.Scan.Reference,
		Workers:   c.Scan.Workers,
	}
	table, failed := batch.Run(cmd.Context(), samples)

	if err := writeResults(cmd.OutOrStdout(), table, catalog); err != nil {
		return err
	}

	if len(failed) > 0 {
		for _, f := range failed {
			log.Error(f.Error())
		}
		return fmt.Errorf("%d of %d samples failed", len(failed), len(samples))
	}
	return nil
}

// loadCatalog reads the amplicons or builds them from the BED and the variants.
func loadCatalog(c *config.Config) (*amplicon.Catalog, error) {
	if scanF.inAmp != "" {
		f, err := os.Open(scanF.inAmp)
		if err != nil {
			return nil, fmt.Errorf("failed to open amplicons: %v", err)
		}
		defer f.Close()
		return amplicon.ReadCatalog(f)
	}

	intervals, err := cio.ReadBEDFile(c.Scan.BedFile)
	if err != nil {
		return nil, err
	}
	windows := amplicon.Windows(intervals, amplicon.WindowOptions{
		PrimerTrim:        c.Window.PrimerTrim,
		FallbackHalfWidth: c.Window.HalfWidth,
	})

	defs, err := cio.ReadVariantDir(c.Scan.VocDir)
	if err != nil {
		return nil, err
	}

	b := amplicon.NewBuilder(mutation.NewParser())
	b.Categories = c.Scan.Categories
	b.IncludeReverts = c.Scan.Reverts
	b.MinCooccurrence = c.Scan.Cooc
	b.ResolveSubsets = c.Scan.Subsets
	return b.Build(windows, defs)
}

// scanSamples lists the samples of the TSV or, without it, the alignments
// themselves named after their path.
func scanSamples(c *config.Config, alignments []string) ([]scan.Sample, error) {
	if scanF.samples != "" {
		if len(alignments) > 0 {
			return nil, errors.New("alignments can't be given with a samples TSV")
		}
		rows, err := cio.ReadSamplesFile(scanF.samples)
		if err != nil {
			return nil, err
		}
		return cio.Samples(rows, c.Scan.Prefix, c.Scan.Batchname), nil
	}

	samples := make([]scan.Sample, 0, len(alignments))
	for _, a := range alignments {
		samples = append(samples, scan.Sample{Name: a, Path: a})
	}
	return samples, nil
}

func writeResults(out io.Writer, table scan.Table, catalog *amplicon.Catalog) error {
	if scanF.dump || (scanF.json == "" && scanF.yaml == "") {
		if err := cio.WriteYAML(out, table, catalog); err != nil {
			return err
		}
	}
	if scanF.json != "" {
		if err := writeTo(scanF.json, func(f *os.File) error { return cio.WriteJSON(f, table) }); err != nil {
			return err
		}
	}
	if scanF.yaml != "" {
		if err := writeTo(scanF.yaml, func(f *os.File) error { return cio.WriteYAML(f, table, catalog) }); err != nil {
			return err
		}
	}
	if scanF.tsv != "" {
		if err := writeTo(scanF.tsv, func(f *os.File) error { return cio.WriteTSV(f, table, catalog) }); err != nil {
			return err
		}
	}
	return nil
}

// writeTo creates path and writes it with write.
func writeTo(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %v", path, err)
	}
	log.WithField("file", path).Info("written")
	return f.Close()
}
