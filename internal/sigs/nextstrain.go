package sigs

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// DefaultSummaryURL is the pango consensus sequences summary.
const DefaultSummaryURL = "https://raw.githubusercontent.com/corneliusroemer/pango-sequences/main/data/pango-consensus-sequences_summary.json"

// Lineage is the signature of one pango lineage in the consensus summary.
type Lineage struct {
	Nextstrain string
	Pangolin   string

	// Substitutions by position, "C>T"
	Substitutions map[int]string

	// Deletions by first deleted position, one "-" per base
	Deletions map[int]string
}

// Short is the lineage name lowercased with dots replaced: "ba_2_86".
func (l *Lineage) Short() string {
	return strings.ReplaceAll(strings.ToLower(l.Pangolin), ".", "_")
}

// FetchSummary downloads the summary, retrying transient failures with b.
// Client errors (4xx) aren't retried.
func FetchSummary(ctx context.Context, url string, b backoff.BackOff) ([]byte, error) {
	var body []byte
	fetch := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.WithField("url", url).Warnf("fetch failed, retrying: %v", err)
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("fetching %s: %s", url, resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			log.WithField("url", url).Warnf("fetch failed, retrying: %s", resp.Status)
			return fmt.Errorf("fetching %s: %s", url, resp.Status)
		}

		body, err = ioutil.ReadAll(resp.Body)
		return err
	}

	if err := backoff.Retry(fetch, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// ParseSummary reads the lineages of the summary JSON, sorted by name.
func ParseSummary(data []byte) ([]*Lineage, error) {
	parsed, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary JSON: %v", err)
	}

	children, err := parsed.ChildrenMap()
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary JSON: expected an object of lineages: %v", err)
	}

	var lineages []*Lineage
	for key, child := range children {
		l := &Lineage{
			Nextstrain:    stringAt(child, "nextstrainClade"),
			Pangolin:      stringAt(child, "lineage"),
			Substitutions: make(map[int]string),
			Deletions:     make(map[int]string),
		}
		if l.Pangolin == "" {
			l.Pangolin = key
		}

		for _, sub := range stringsAt(child, "nucSubstitutions") {
			if len(sub) < 3 {
				return nil, fmt.Errorf("lineage %s: malformed substitution %q", key, sub)
			}
			pos, err := strconv.Atoi(sub[1 : len(sub)-1])
			if err != nil {
				return nil, fmt.Errorf("lineage %s: malformed substitution %q", key, sub)
			}
			l.Substitutions[pos] = fmt.Sprintf("%c>%c", sub[0], sub[len(sub)-1])
		}

		for _, del := range stringsAt(child, "nucDeletions") {
			pos, length, err := parseDeletion(del)
			if err != nil {
				return nil, fmt.Errorf("lineage %s: %v", key, err)
			}
			l.Deletions[pos] = strings.Repeat("-", length)
		}

		lineages = append(lineages, l)
	}

	sort.Slice(lineages, func(i, j int) bool {
		return lineages[i].Pangolin < lineages[j].Pangolin
	})
	return lineages, nil
}

// parseDeletion reads "a-b" (b-a bases from a) or "n" (one base).
func parseDeletion(del string) (pos, length int, err error) {
	if i := strings.Index(del, "-"); i >= 0 {
		start, err1 := strconv.Atoi(del[:i])
		end, err2 := strconv.Atoi(del[i+1:])
		if err1 != nil || err2 != nil || end <= start {
			return 0, 0, fmt.Errorf("malformed deletion %q", del)
		}
		return start, end - start, nil
	}

	pos, err = strconv.Atoi(del)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed deletion %q", del)
	}
	return pos, 1, nil
}

func stringAt(c *gabs.Container, path string) string {
	s, _ := c.Path(path).Data().(string)
	return s
}

// stringsAt returns the non empty strings of an array, the summary uses
// [""] for none.
func stringsAt(c *gabs.Container, path string) []string {
	items, err := c.Path(path).Children()
	if err != nil {
		return nil
	}

	var out []string
	for _, item := range items {
		if s, ok := item.Data().(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// positions sorts the keys of a position map.
func positions(m map[int]string) yaml.MapSlice {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make(yaml.MapSlice, 0, len(keys))
	for _, k := range keys {
		out = append(out, yaml.MapItem{Key: k, Value: m[k]})
	}
	return out
}

// Document is the cojac variant definition of the lineage.
func (l *Lineage) Document(address string, accessed time.Time) yaml.MapSlice {
	doc := yaml.MapSlice{
		{Key: "variant", Value: yaml.MapSlice{
			{Key: "nextstrain", Value: l.Nextstrain},
			{Key: "pangolin", Value: l.Pangolin},
			{Key: "short", Value: l.Short()},
			{Key: "reference", Value: yaml.MapSlice{
				{Key: "address", Value: address},
				{Key: "accessed_at", Value: accessed.Format("2006-01-02 15:04:05")},
			}},
		}},
	}
	if len(l.Substitutions) > 0 {
		doc = append(doc, yaml.MapItem{Key: "mut", Value: positions(l.Substitutions)})
	}
	if len(l.Deletions) > 0 {
		doc = append(doc, yaml.MapItem{Key: "del", Value: positions(l.Deletions)})
	}
	return doc
}

// WriteLineages writes one "{short}.yaml" per lineage into outdir and
// returns the paths written.
func WriteLineages(outdir string, lineages []*Lineage, address string, accessed time.Time) ([]string, error) {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %v", outdir, err)
	}

	var paths []string
	for _, l := range lineages {
		data, err := yaml.Marshal(l.Document(address, accessed))
		if err != nil {
			return paths, fmt.Errorf("failed to serialize %s: %v", l.Pangolin, err)
		}

		path := filepath.Join(outdir, l.Short()+".yaml")
		if err := ioutil.WriteFile(path, data, 0644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	log.WithField("outdir", outdir).Infof("wrote %d lineages", len(paths))
	return paths, nil
}
