// Package csvio reads target-KPI and parameter trajectories from CSV files
// and writes optimized trajectories back. Column selection accepts explicit
// names or indices and otherwise falls back to picking numeric columns,
// preferring conventional KPI column names.
package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// KPIColumns and ParamColumns are the expected widths of the two
// trajectory kinds.
const (
	KPIColumns   = 3
	ParamColumns = 8
)

// ReadKPI loads a [T,3] KPI trajectory. colsSpec is a comma-separated list
// of column names or indices; empty means automatic selection. The chosen
// column names are returned for reuse in output files.
func ReadKPI(path, colsSpec string) ([][]float64, []string, error) {
	return readTrajectory(path, colsSpec, KPIColumns)
}

// ReadParams loads a [T,8] parameter trajectory.
func ReadParams(path, colsSpec string) ([][]float64, []string, error) {
	return readTrajectory(path, colsSpec, ParamColumns)
}

func readTrajectory(path, colsSpec string, expected int) ([][]float64, []string, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("csvio: %s holds no data rows", path)
	}
	fillBlanks(rows)

	var idx []int
	if strings.TrimSpace(colsSpec) != "" {
		idx, err = parseColsSpec(colsSpec, header, expected)
	} else {
		idx, err = autoSelect(header, rows, expected)
	}
	if err != nil {
		return nil, nil, err
	}

	out := make([][]float64, len(rows))
	names := make([]string, expected)
	for i, col := range idx {
		names[i] = header[col]
	}
	for t, row := range rows {
		vals := make([]float64, expected)
		for i, col := range idx {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("csvio: row %d column %q: %w", t+1, header[col], err)
			}
			vals[i] = v
		}
		out[t] = vals
	}
	return out, names, nil
}

func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csvio: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("csvio: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csvio: %s is empty", path)
	}
	return records[0], records[1:], nil
}

// fillBlanks forward-fills then back-fills empty cells per column, the
// usual treatment for gappy process logs.
func fillBlanks(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	cols := len(rows[0])
	for c := 0; c < cols; c++ {
		last := ""
		for t := 0; t < len(rows); t++ {
			if c >= len(rows[t]) {
				continue
			}
			if strings.TrimSpace(rows[t][c]) == "" {
				rows[t][c] = last
			} else {
				last = rows[t][c]
			}
		}
		next := ""
		for t := len(rows) - 1; t >= 0; t-- {
			if c >= len(rows[t]) {
				continue
			}
			if strings.TrimSpace(rows[t][c]) == "" {
				rows[t][c] = next
			} else {
				next = rows[t][c]
			}
		}
	}
}

// parseColsSpec resolves "c1,c2,c3" or "0,1,2" against the header. Indices
// may be negative to count from the end. Name matching is exact first,
// then case-insensitive.
func parseColsSpec(spec string, header []string, expected int) ([]int, error) {
	items := strings.Split(spec, ",")
	var idx []int
	for _, raw := range items {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		if n, err := strconv.Atoi(item); err == nil {
			if n < 0 {
				n += len(header)
			}
			if n < 0 || n >= len(header) {
				return nil, fmt.Errorf("csvio: column index %s out of range", item)
			}
			idx = append(idx, n)
			continue
		}
		col := -1
		for i, h := range header {
			if h == item {
				col = i
				break
			}
		}
		if col < 0 {
			for i, h := range header {
				if strings.EqualFold(h, item) {
					col = i
					break
				}
			}
		}
		if col < 0 {
			return nil, fmt.Errorf("csvio: column %q not found", item)
		}
		idx = append(idx, col)
	}
	if len(idx) != expected {
		return nil, fmt.Errorf("csvio: expected %d columns, got %d from spec", expected, len(idx))
	}
	return idx, nil
}

// autoSelect picks numeric columns, preferring kpi_x/kpi_y/kpi_z then
// x/y/z names, else the first N numeric columns.
func autoSelect(header []string, rows [][]string, expected int) ([]int, error) {
	var numeric []int
	for c := range header {
		if columnIsNumeric(rows, c) {
			numeric = append(numeric, c)
		}
	}
	if len(numeric) < expected {
		return nil, fmt.Errorf("csvio: need at least %d numeric columns, found %d", expected, len(numeric))
	}

	lower := make(map[string]int, len(numeric))
	for _, c := range numeric {
		lower[strings.ToLower(header[c])] = c
	}
	for _, pri := range [][]string{{"kpi_x", "kpi_y", "kpi_z"}, {"x", "y", "z"}} {
		if expected != len(pri) {
			continue
		}
		hit := make([]int, 0, expected)
		for _, name := range pri {
			if c, ok := lower[name]; ok {
				hit = append(hit, c)
			}
		}
		if len(hit) == expected {
			return hit, nil
		}
	}
	return numeric[:expected], nil
}

func columnIsNumeric(rows [][]string, col int) bool {
	seen := false
	for _, row := range rows {
		if col >= len(row) {
			return false
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// DefaultParamColumns returns Param1..ParamN, the output header used when
// no baseline file supplies real column names.
func DefaultParamColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("Param%d", i+1)
	}
	return cols
}

// WriteTrajectory writes a [T,C] trajectory with the given header.
func WriteTrajectory(path string, cols []string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvio: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return fmt.Errorf("csvio: write header: %w", err)
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csvio: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
