// Package io reads the inputs of a scan (primer schemes, sample lists and
// variant definitions) and writes its results.
package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cbg-ethz/cojac/internal/amplicon"
	"github.com/cbg-ethz/cojac/internal/mutation"
	"github.com/cbg-ethz/cojac/internal/scan"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	log "github.com/sirupsen/logrus"
)

// readTable loads a header-less, tab separated, table of strings. Blank,
// comment, "track" and "browser" lines are skipped.
func readTable(r io.Reader) (dataframe.DataFrame, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") ||
			strings.HasPrefix(line, "browser") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(lines) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("no rows")
	}

	// types aren't detected: batch names like "20210101" or "0042" stay strings
	df := dataframe.ReadCSV(strings.NewReader(strings.Join(lines, "\n")),
		dataframe.WithDelimiter('\t'),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true))
	if df.Err != nil {
		return df, df.Err
	}

	return df, nil
}

// ReadBED reads an amplicon insert BED: ref, start, stop and, optionally,
// amplicon name, pool and strand.
func ReadBED(r io.Reader) ([]amplicon.Interval, error) {
	df, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read BED: %v", err)
	}
	if df.Ncol() < 3 {
		return nil, fmt.Errorf("failed to read BED: %d columns, expected at least ref, start and stop", df.Ncol())
	}

	optional := func(row, col int) string {
		if col >= df.Ncol() {
			return ""
		}
		return df.Elem(row, col).String()
	}

	intervals := make([]amplicon.Interval, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		start, err := strconv.Atoi(df.Elem(i, 1).String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse start on BED row %d: %v", i+1, err)
		}
		end, err := strconv.Atoi(df.Elem(i, 2).String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse stop on BED row %d: %v", i+1, err)
		}
		if end <= start {
			return nil, fmt.Errorf("BED row %d: stop %d isn't past start %d", i+1, end, start)
		}

		intervals = append(intervals, amplicon.Interval{
			Ref:    df.Elem(i, 0).String(),
			Start:  start,
			End:    end,
			Label:  optional(i, 3),
			Pool:   optional(i, 4),
			Strand: optional(i, 5),
		})
	}

	return intervals, nil
}

// ReadBEDFile reads the BED at path.
func ReadBEDFile(path string) ([]amplicon.Interval, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bedfile: %v", err)
	}
	defer f.Close()

	return ReadBED(f)
}

// SampleRow is one row of a V-pipe samples list.
type SampleRow struct {
	Sample string
	Batch  string
}

// ReadSamples reads a V-pipe samples TSV: sample, batch and extra columns
// that are ignored.
func ReadSamples(r io.Reader) ([]SampleRow, error) {
	df, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples list: %v", err)
	}
	if df.Ncol() < 2 {
		return nil, fmt.Errorf("failed to read samples list: expected sample and batch columns")
	}

	rows := make([]SampleRow, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		rows = append(rows, SampleRow{
			Sample: df.Elem(i, 0).String(),
			Batch:  df.Elem(i, 1).String(),
		})
	}
	return rows, nil
}

// ReadSamplesFile reads the samples TSV at path.
func ReadSamplesFile(path string) ([]SampleRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot find sample file %s: %v", path, err)
	}
	defer f.Close()

	return ReadSamples(f)
}

// AlignmentPath is where V-pipe writes the alignment of a sample.
func AlignmentPath(prefix, sample, batch string) string {
	return filepath.Join(prefix, sample, batch, "alignments", "REF_aln.bam")
}

// Samples turns the rows of a samples list into scan samples. With a
// batchname separator the sample name is "{sample}{sep}{batch}".
func Samples(rows []SampleRow, prefix, batchname string) []scan.Sample {
	samples := make([]scan.Sample, 0, len(rows))
	for _, r := range rows {
		name := r.Sample
		if batchname != "" {
			name = r.Sample + batchname + r.Batch
		}
		samples = append(samples, scan.Sample{
			Name: name,
			Path: AlignmentPath(prefix, r.Sample, r.Batch),
		})
	}
	return samples
}

// ReadVariantDir parses every non-hidden YAML file of dir, in lexical order.
func ReadVariantDir(dir string) ([]*mutation.Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read variants directory: %v", err)
	}

	var defs []*mutation.Definition
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if ext := filepath.Ext(name); ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		def, err := mutation.ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}

		log.WithField("file", name).Debugf("loaded variant %s", def.Variant.Short)
		defs = append(defs, def)
	}

	return defs, nil
}
