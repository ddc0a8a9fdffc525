package lookahead

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"stratguard/internal/logger"
)

// Row is the exported form of a result.
type Row struct {
	Filename           string `json:"filename" yaml:"filename"`
	Strategy           string `json:"strategy" yaml:"strategy"`
	HasBias            bool   `json:"has_bias" yaml:"has_bias"`
	TotalSignals       int    `json:"total_signals" yaml:"total_signals"`
	BiasedEntrySignals int    `json:"biased_entry_signals" yaml:"biased_entry_signals"`
	BiasedExitSignals  int    `json:"biased_exit_signals" yaml:"biased_exit_signals"`
	BiasedIndicators   string `json:"biased_indicators" yaml:"biased_indicators"`
}

func rowFromResult(r Result) Row {
	return Row{
		Filename:           r.Filename,
		Strategy:           r.Strategy,
		HasBias:            r.HasBias,
		TotalSignals:       r.TotalSignals,
		BiasedEntrySignals: r.BiasedEntrySignals,
		BiasedExitSignals:  r.BiasedExitSignals,
		BiasedIndicators:   strings.Join(r.BiasedIndicators, ","),
	}
}

type exportFormat int

const (
	formatCSV exportFormat = iota
	formatJSON
	formatYAML
)

func formatFor(path string) exportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatCSV
	}
}

// Export upserts the exportable results into path, keyed by (filename, strategy).
// Rows already in the file for other strategies are kept. Results that failed or
// caught no more than minimum signals are not exported.
func Export(path string, results []Result, minimum int) error {
	rows, err := ReadExport(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for _, r := range results {
		if r.Failed || r.TotalSignals <= minimum {
			continue
		}
		rows = upsertRow(rows, rowFromResult(r))
	}
	logger.Infof("saving %s", path)
	return writeExport(path, rows)
}

func upsertRow(rows []Row, row Row) []Row {
	for i := range rows {
		if rows[i].Filename == row.Filename && rows[i].Strategy == row.Strategy {
			rows[i] = row
			return rows
		}
	}
	return append(rows, row)
}

// ReadExport reads rows previously written by Export. The format follows the file
// extension.
func ReadExport(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch formatFor(path) {
	case formatJSON:
		var rows []Row
		if err := json.NewDecoder(f).Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return rows, nil
	case formatYAML:
		var rows []Row
		if err := yaml.NewDecoder(f).Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return rows, nil
	default:
		return readCSV(f)
	}
}

func readCSV(r io.Reader) ([]Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	idx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		idx[strings.TrimSpace(h)] = i
	}
	for _, h := range tableHeaders {
		if _, ok := idx[h]; !ok {
			return nil, fmt.Errorf("export file is missing column %q", h)
		}
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		get := func(col string) string {
			if i := idx[col]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		hasBias, _ := strconv.ParseBool(get("has_bias"))
		rows = append(rows, Row{
			Filename:           get("filename"),
			Strategy:           get("strategy"),
			HasBias:            hasBias,
			TotalSignals:       atoiOrZero(get("total_signals")),
			BiasedEntrySignals: atoiOrZero(get("biased_entry_signals")),
			BiasedExitSignals:  atoiOrZero(get("biased_exit_signals")),
			BiasedIndicators:   get("biased_indicators"),
		})
	}
	return rows, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func writeExport(path string, rows []Row) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	switch formatFor(path) {
	case formatJSON:
		enc := json.NewEncoder(tmp)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []Row{}
		}
		err = enc.Encode(rows)
	case formatYAML:
		enc := yaml.NewEncoder(tmp)
		if err = enc.Encode(rows); err == nil {
			err = enc.Close()
		}
	default:
		err = writeCSV(tmp, rows)
	}
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Filename,
			r.Strategy,
			pyBool(r.HasBias),
			strconv.Itoa(r.TotalSignals),
			strconv.Itoa(r.BiasedEntrySignals),
			strconv.Itoa(r.BiasedExitSignals),
			r.BiasedIndicators,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
