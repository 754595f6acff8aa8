// Package alignment reads indexed BAM files as scan sources.
package alignment

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/sam"
	"github.com/cbg-ethz/cojac/internal/scan"
)

// BAM is an indexed BAM file opened for reading.
type BAM struct {
	f   *os.File
	r   *bam.Reader
	idx *bam.Index

	refs  map[string]*sam.Reference
	names []string
}

// Open opens a BAM file and its index (either "x.bam.bai" or "x.bai").
func Open(path string) (*BAM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if ok, err := bgzf.HasEOF(f); err != nil || !ok {
		f.Close()
		return nil, fmt.Errorf("failed to find the BGZF EOF marker of %s, truncated file? %v", path, err)
	}

	r, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read BAM header of %s: %v", path, err)
	}

	idx, err := readIndex(path)
	if err != nil {
		r.Close()
		f.Close()
		return nil, err
	}

	b := &BAM{
		f:    f,
		r:    r,
		idx:  idx,
		refs: make(map[string]*sam.Reference),
	}
	for _, ref := range r.Header().Refs() {
		b.refs[ref.Name()] = ref
		b.names = append(b.names, ref.Name())
	}

	return b, nil
}

// OpenSource opens a BAM as a scan.Source.
func OpenSource(path string) (scan.Source, error) {
	return Open(path)
}

// readIndex reads the BAI next to the BAM.
func readIndex(path string) (*bam.Index, error) {
	candidates := []string{path + ".bai", strings.TrimSuffix(path, ".bam") + ".bai"}
	for _, c := range candidates {
		f, err := os.Open(c)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		defer f.Close()

		idx, err := bam.ReadIndex(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read index %s: %v", c, err)
		}
		return idx, nil
	}

	return nil, fmt.Errorf("failed to find an index for %s, run 'samtools index'", path)
}

// References lists the reference names of the BAM header.
func (b *BAM) References() []string {
	return b.names
}

// Fetch returns the mapped reads overlapping [start, end) on ref.
func (b *BAM) Fetch(ref string, start, end int) ([]*scan.Read, error) {
	r, ok := b.refs[ref]
	if !ok {
		return nil, fmt.Errorf("reference %s not in alignment header (has: %s)", ref, strings.Join(b.names, ", "))
	}

	chunks, err := b.idx.Chunks(r, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query index for %s:%d-%d: %v", ref, start, end, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	it, err := bam.NewIterator(b.r, chunks)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var reads []*scan.Read
	for it.Next() {
		rec := it.Record()
		if rec.Flags&sam.Unmapped != 0 || rec.Ref.ID() != r.ID() {
			continue
		}
		// index chunks are coarser than the query
		if rec.Pos >= end || rec.End() <= start {
			continue
		}
		reads = append(reads, newRead(rec))
	}

	return reads, it.Error()
}

// Close closes the reader and the file.
func (b *BAM) Close() error {
	err := b.r.Close()
	if ferr := b.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// newRead maps every query base of the record to its reference position.
func newRead(rec *sam.Record) *scan.Read {
	seq := rec.Seq.Expand()
	refPos := make([]int, 0, len(seq))

	pos := rec.Pos
	for _, co := range rec.Cigar {
		t, n := co.Type(), co.Len()
		c := t.Consumes()
		switch {
		case c.Query != 0 && c.Reference != 0:
			for i := 0; i < n; i++ {
				refPos = append(refPos, pos+i)
			}
			pos += n
		case c.Query != 0: // soft clip, insertion
			for i := 0; i < n; i++ {
				refPos = append(refPos, scan.NoRef)
			}
		case c.Reference != 0: // deletion, skip
			pos += n
		}
	}

	return &scan.Read{
		Name:   rec.Name,
		Second: rec.Flags&sam.Read1 == 0,
		Start:  rec.Pos,
		End:    rec.End(),
		RefPos: refPos,
		Seq:    seq,
	}
}
