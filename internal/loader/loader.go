// Package loader reads per-tenor rate series from delimited text files,
// either on local disk or in an S3-compatible bucket. One file per tenor,
// a date column and a value column; row order and headers are tolerated.
package loader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/curvescope/internal/curve"
)

// Source provides named rate series for the analysis pipeline
type Source interface {
	// List returns the available source ids, sorted
	List(ctx context.Context) ([]string, error)
	// Load returns the observations for one source id. Value cells are
	// passed through raw; only a file that cannot be parsed into
	// date/value pairs at all is an error.
	Load(ctx context.Context, id string) (curve.RawSeries, error)
}

// dataExtensions are the file extensions recognized as series files
var dataExtensions = []string{".csv", ".tsv", ".txt"}

// dateFormats are tried in order when parsing the date column
var dateFormats = []string{"2006-01-02", "2006/01/02", "01/02/2006"}

// FileSource loads series from delimited files in a local directory
type FileSource struct {
	dir string
	log zerolog.Logger
}

// NewFileSource creates a file-backed series source
func NewFileSource(dir string, log zerolog.Logger) *FileSource {
	return &FileSource{
		dir: dir,
		log: log.With().Str("component", "file_source").Logger(),
	}
}

// List returns the ids of all recognized series files in the directory
func (f *FileSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources directory %s: %w", f.dir, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := seriesID(entry.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads and parses the series file for one id
func (f *FileSource) Load(ctx context.Context, id string) (curve.RawSeries, error) {
	for _, ext := range dataExtensions {
		path := filepath.Join(f.dir, id+ext)
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to open series file %s: %w", path, err)
		}
		defer file.Close()

		series, err := parseSeries(file, id)
		if err != nil {
			return nil, err
		}
		f.log.Debug().Str("id", id).Int("observations", len(series)).Msg("Loaded series file")
		return series, nil
	}

	return nil, fmt.Errorf("no series file found for %q in %s", id, f.dir)
}

// seriesID maps a file name to a source id when it has a recognized
// data extension
func seriesID(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range dataExtensions {
		if ext == known {
			return strings.TrimSuffix(name, filepath.Ext(name)), true
		}
	}
	return "", false
}

// parseSeries parses delimited date/value lines. The first line may be a
// header (detected by an unparseable date) and is skipped. Any later line
// whose date cannot be parsed makes the whole series unloadable: without a
// date there is no pair to align. Value cells are never validated here.
func parseSeries(r io.Reader, id string) (curve.RawSeries, error) {
	scanner := bufio.NewScanner(r)

	var series curve.RawSeries
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := splitDelimited(line)
		if len(fields) < 2 {
			if lineNo == 1 {
				continue // single-column header
			}
			return nil, fmt.Errorf("series %q line %d: expected date and value columns, got %q", id, lineNo, line)
		}

		date, err := parseDate(fields[0])
		if err != nil {
			if lineNo == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("series %q line %d: %w", id, lineNo, err)
		}

		series = append(series, curve.Observation{Date: date, Raw: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read series %q: %w", id, err)
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("series %q contains no observations", id)
	}

	return series, nil
}

// splitDelimited splits a line on comma, tab or semicolon, whichever
// appears first
func splitDelimited(line string) []string {
	for _, sep := range []string{",", "\t", ";"} {
		if strings.Contains(line, sep) {
			parts := strings.Split(line, sep)
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
	}
	return strings.Fields(line)
}

// parseDate tries the supported date layouts in order
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateFormats {
		if date, err := time.Parse(layout, raw); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}
