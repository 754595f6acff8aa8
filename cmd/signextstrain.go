package cmd

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/cbg-ethz/cojac/internal/sigs"
	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	nsOutdir  string
	nsURL     string
	nsInput   string
	nsRetries uint64
)

// sigNextstrainCmd represents the sig-nextstrain command
var sigNextstrainCmd = &cobra.Command{
	Use:   "sig-nextstrain",
	Short: "Generate variant definitions from the pango consensus sequences summary",
	Long: `Generate variant definitions from the pango consensus sequences summary

One YAML per lineage is written in the output directory, named after the
lineage ("BA.2" is ba_2.yaml). Substitutions go in the "mut" category and
deletions in "del". The summary is downloaded (--url) unless a local copy
is given (--input).`,
	Args: cobra.NoArgs,
	RunE: runSigNextstrain,
}

func init() {
	rootCmd.AddCommand(sigNextstrainCmd)

	sigNextstrainCmd.Flags().StringVarP(&nsOutdir, "outdir", "o", "voc_nextstrain", "output directory for the YAML files")
	sigNextstrainCmd.Flags().StringVarP(&nsURL, "url", "u", sigs.DefaultSummaryURL, "URL to fetch the JSON summary from")
	sigNextstrainCmd.Flags().StringVarP(&nsInput, "input", "i", "", "read the JSON summary from a file instead")
	sigNextstrainCmd.Flags().Uint64Var(&nsRetries, "retries", 5, "download attempts after the first failure")
}

func runSigNextstrain(cmd *cobra.Command, args []string) error {
	var (
		data    []byte
		address = nsURL
		err     error
	)

	if nsInput != "" {
		address = nsInput
		data, err = ioutil.ReadFile(nsInput)
		if err != nil {
			return fmt.Errorf("failed to read %s: %v", nsInput, err)
		}
	} else {
		log.WithField("url", nsURL).Info("fetching summary")
		b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), nsRetries)
		data, err = sigs.FetchSummary(cmd.Context(), nsURL, b)
		if err != nil {
			return err
		}
	}

	lineages, err := sigs.ParseSummary(data)
	if err != nil {
		return err
	}

	_, err = sigs.WriteLineages(nsOutdir, lineages, address, time.Now())
	return err
}
