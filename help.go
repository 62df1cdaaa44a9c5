package celerograph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoSources is returned by SourcePaths for a directory without CSV files.
var ErrNoSources = errors.New("no .csv files")

// SourcePaths resolves an input argument into the CSV files to read: a
// regular file is returned as is, a directory yields its *.csv entries in
// name order.
func SourcePaths(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		res = append(res, filepath.Join(path, e.Name()))
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSources)
	}
	return res, nil
}

// LoadPath reads every CSV source under path into one Aggregate.
func LoadPath(path string) (*Aggregate, error) {
	paths, err := SourcePaths(path)
	if err != nil {
		return nil, err
	}
	return Collect(&Files{Paths: paths})
}

func WriteJSONFile(outputFile string, data interface{}) error {
	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return err
	}
	return out.Close()
}

// JSONFileName returns csvPath with its extension replaced by .json.
func JSONFileName(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".json"
}

// DataFileName names the CSV file a benchmark run at commit githash
// writes into a data directory.
func DataFileName(date time.Time, githash string) string {
	return date.Format("2006-01-02") + "_" + githash + ".csv"
}
