// Command render turns FIRMS CSV files saved to disk into the same styled
// GeoJSON layer the service displays. Files are merged in flag order and
// deduplicated across sources, so a detection present in two files keeps the
// record from the first.
//
// Usage:
//
//	go run ./cmd/render \
//	  -source VIIRS_SNPP_NRT=data/snpp.csv \
//	  -source VIIRS_NOAA20_NRT=data/noaa20.csv \
//	  -out layer.geojson
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/firms-fire-etl/internal/domain"
)

// sourceFile is one -source flag: a FIRMS feed id and the CSV file holding it.
type sourceFile struct {
	id   string
	path string
}

type sourceFlags []sourceFile

func (s *sourceFlags) String() string {
	parts := make([]string, len(*s))
	for i, f := range *s {
		parts[i] = f.id + "=" + f.path
	}
	return strings.Join(parts, ",")
}

func (s *sourceFlags) Set(v string) error {
	id, path, ok := strings.Cut(v, "=")
	if !ok || id == "" || path == "" {
		return fmt.Errorf("want ID=path, got %q", v)
	}
	if !domain.IsKnownSource(id) {
		return fmt.Errorf("unknown FIRMS source %q", id)
	}
	*s = append(*s, sourceFile{id: id, path: path})
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var sources sourceFlags
	flag.Var(&sources, "source", "FIRMS source and CSV file as ID=path (repeatable, merged in order)")
	out := flag.String("out", "", "output path for the GeoJSON layer (default stdout)")
	flag.Parse()

	if len(sources) == 0 {
		flag.Usage()
		return fmt.Errorf("at least one -source is required")
	}

	var records []domain.DetectionRecord
	for _, s := range sources {
		body, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.path, err)
		}
		res := domain.ParseCSV(s.id, string(body))
		log.Printf("%s: %d rows, %d dropped", s.id, res.Rows, res.Dropped)
		records = append(records, res.Records...)
	}

	unique := domain.Dedupe(records)
	log.Printf("total: %d records, %d after dedupe", len(records), len(unique))

	l := domain.Render(0, unique)
	data, err := l.MarshalGeoJSON()
	if err != nil {
		return fmt.Errorf("encoding layer: %w", err)
	}

	if err := write(*out, data); err != nil {
		return err
	}
	printStats(os.Stderr, l)
	return nil
}

func write(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // output file is meant to be readable
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.Printf("wrote layer: %s", path)
	return nil
}

func printStats(w io.Writer, l domain.Layer) {
	tiers := map[domain.Tier]int{}
	bySource := map[string]int{}
	for _, f := range l.Features {
		tiers[f.Style.Tier]++
		bySource[f.Record.Source]++
	}

	fmt.Fprintf(w, "\nDetections: %d\n", l.Len())
	for _, t := range []domain.Tier{domain.TierHigh, domain.TierNominal, domain.TierLow, domain.TierUnknown} {
		fmt.Fprintf(w, "  %-8s %d\n", t, tiers[t])
	}

	ids := make([]string, 0, len(bySource))
	for id := range bySource {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintln(w, "By source:")
	for _, id := range ids {
		fmt.Fprintf(w, "  %-18s %d\n", id, bySource[id])
	}
}
