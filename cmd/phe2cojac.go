package cmd

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/cbg-ethz/cojac/internal/sigs"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	pheShortname string
	pheOut       string
	pheAutoName  bool
)

// phe2cojacCmd represents the phe2cojac command
var phe2cojacCmd = &cobra.Command{
	Use:   "phe2cojac [flags] IN_YAML",
	Short: "Convert a phe-genomics variant definition into a cojac variant definition",
	Long: `Convert a phe-genomics variant definition into a cojac variant definition

SNPs and MNPs are written in the "mut" category, indels in "extra" unless the
definition requires indels (then "mut"). The short name of the variant is
derived from the unique-id unless given with --shortname.`,
	Example: `  cojac phe2cojac --auto-name variant_definitions/slinky-antennae.yml`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPhe2Cojac,
}

func init() {
	rootCmd.AddCommand(phe2cojacCmd)

	phe2cojacCmd.Flags().StringVarP(&pheShortname, "shortname", "s", "", "short name to use (otherwise built from the unique id)")
	phe2cojacCmd.Flags().StringVarP(&pheOut, "yaml", "y", "", "write the cojac variant to a YAML file instead of printing it")
	phe2cojacCmd.Flags().BoolVar(&pheAutoName, "auto-name", false, "write to {shortname}_mutations.yaml")
	phe2cojacCmd.MarkFlagsMutuallyExclusive("yaml", "auto-name")
}

func runPhe2Cojac(cmd *cobra.Command, args []string) error {
	data, err := ioutil.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", args[0], err)
	}

	def, err := sigs.ParsePhe(data)
	if err != nil {
		return err
	}
	doc, err := sigs.ConvertPhe(def, pheShortname)
	if err != nil {
		return err
	}

	out := pheOut
	if pheAutoName {
		out = doc.FileName()
	}
	if out == "" {
		return doc.Write(cmd.OutOrStdout())
	}

	log.WithField("variant", doc.Short).Debug("converted")
	return writeTo(out, func(f *os.File) error { return doc.Write(f) })
}
