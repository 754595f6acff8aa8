package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/cbg-ethz/cojac/internal/amplicon"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sample is an alignment file scanned under a name.
type Sample struct {
	Name string
	Path string
}

// Table holds the results of a batch: sample -> amplicon ID -> Result.
type Table map[string]map[string]*Result

// Samples returns the table's sample names, sorted.
func (t Table) Samples() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Failure is a sample that couldn't be scanned.
type Failure struct {
	Sample string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("sample %s: %v", f.Sample, f.Err)
}

// Batch scans a catalog against the alignment files of many samples.
// Samples are independent: a failing sample doesn't stop the others.
type Batch struct {
	Catalog *amplicon.Catalog

	// Open opens a sample's alignment file
	Open Opener

	// Reference to query, auto-detected per sample if empty
	Reference string

	// Workers is the number of samples scanned concurrently
	Workers int
}

// Run scans every sample. It returns the results of the samples that
// succeeded and the failures of the others, in sample order.
func (b *Batch) Run(ctx context.Context, samples []Sample) (Table, []Failure) {
	logger := log.WithField("run", uuid.NewString())
	logger.Infof("scanning %d amplicons in %d samples", b.Catalog.Len(), len(samples))

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu       sync.Mutex
		table    = make(Table, len(samples))
		failures = make([]*Failure, len(samples))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sample := range samples {
		i, sample := i, sample
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = &Failure{Sample: sample.Name, Err: err}
				return nil
			}

			res, err := b.scanSample(sample, logger.WithField("sample", sample.Name))
			if err != nil {
				logger.WithField("sample", sample.Name).Error(err)
				failures[i] = &Failure{Sample: sample.Name, Err: err}
				return nil
			}

			mu.Lock()
			table[sample.Name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never fail the group

	var failed []Failure
	for _, f := range failures {
		if f != nil {
			failed = append(failed, *f)
		}
	}

	return table, failed
}

// scanSample opens one alignment file and scans all amplicons in it.
func (b *Batch) scanSample(sample Sample, logger *log.Entry) (map[string]*Result, error) {
	if _, err := os.Stat(sample.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: cannot find alignment file %s", ErrMissingAlignmentSource, sample.Path)
	}

	src, err := b.Open(sample.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", sample.Path, err)
	}
	defer src.Close()

	s, err := NewScanner(src, b.Reference, logger)
	if err != nil {
		return nil, err
	}

	logger.WithField("reference", s.Reference).Info("scanning")
	return s.ScanCatalog(b.Catalog)
}
