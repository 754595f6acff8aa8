package cmd

import (
	"fmt"
	"os"

	"github.com/cbg-ethz/cojac/internal/amplicon"
	cio "github.com/cbg-ethz/cojac/internal/io"
	"github.com/cbg-ethz/cojac/internal/tabulate"
	"github.com/spf13/cobra"
)

var (
	tabJSON      string
	tabAmplicons string
	tabOut       string
)

// tabmutCmd represents the cooc-tabmut command
var tabmutCmd = &cobra.Command{
	Use:     "cooc-tabmut",
	Aliases: []string{"tabmut"},
	Short:   "Tabulate the co-occurrence of the mutations of each amplicon",
	Long: `Tabulate the co-occurrence of the mutations of each amplicon

Reads the JSON written by cooc-mutbamscan and writes, per sample and
amplicon, the read pairs covering all the mutation sites (count), those with
all the mutations (mut_all), those with all but one (mut_oneless), the
fraction mut_all/count (frac) and the number of sites (cooc).

The number of sites of each amplicon comes from the amplicons YAML
(--amplicons, written by cooc-mutbamscan --out-amp) or, without it, from the
widest bin of the histogram.`,
	Example: `  cojac cooc-tabmut -j cooc.json -a amplicons.yaml -o cooc.tsv`,
	Args:    cobra.NoArgs,
	RunE:    runTabmut,
}

func init() {
	rootCmd.AddCommand(tabmutCmd)

	tabmutCmd.Flags().StringVarP(&tabJSON, "json", "j", "", "JSON results of cooc-mutbamscan")
	tabmutCmd.Flags().StringVarP(&tabAmplicons, "amplicons", "a", "", "amplicons YAML")
	tabmutCmd.Flags().StringVarP(&tabOut, "output", "o", "", "TSV output (default stdout)")

	tabmutCmd.MarkFlagRequired("json")
}

func runTabmut(cmd *cobra.Command, args []string) error {
	f, err := os.Open(tabJSON)
	if err != nil {
		return fmt.Errorf("failed to open results: %v", err)
	}
	defer f.Close()

	table, err := cio.ReadJSON(f)
	if err != nil {
		return err
	}

	var catalog *amplicon.Catalog
	if tabAmplicons != "" {
		af, err := os.Open(tabAmplicons)
		if err != nil {
			return fmt.Errorf("failed to open amplicons: %v", err)
		}
		defer af.Close()

		if catalog, err = amplicon.ReadCatalog(af); err != nil {
			return err
		}
	}

	rows := tabulate.Rows(table, catalog)
	if tabOut == "" {
		return tabulate.Write(cmd.OutOrStdout(), rows)
	}
	return writeTo(tabOut, func(f *os.File) error { return tabulate.Write(f, rows) })
}
