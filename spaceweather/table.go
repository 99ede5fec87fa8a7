package spaceweather

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// table is an SWPC array-of-arrays product: a header row followed by rows of
// string or null cells.
type table struct {
	columns map[string]int
	rows    [][]*string
}

var errEmptyTable = errors.New("spaceweather: empty table")

func decodeTable(body []byte) (table, error) {
	var raw [][]*string
	if err := json.Unmarshal(body, &raw); err != nil {
		return table{}, err
	}
	if len(raw) == 0 {
		return table{}, errEmptyTable
	}
	t := table{columns: make(map[string]int, len(raw[0])), rows: raw[1:]}
	for i, name := range raw[0] {
		if name != nil {
			t.columns[*name] = i
		}
	}
	return t, nil
}

// latest returns the newest row where every named column holds a number,
// along with its time_tag.
func (t table) latest(names ...string) (string, []float64, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		col, ok := t.columns[n]
		if !ok {
			return "", nil, fmt.Errorf("spaceweather: missing column %q", n)
		}
		idx[i] = col
	}
	timeCol, hasTime := t.columns["time_tag"]

	for r := len(t.rows) - 1; r >= 0; r-- {
		row := t.rows[r]
		vals, ok := parseCells(row, idx)
		if !ok {
			continue
		}
		var tag string
		if hasTime && timeCol < len(row) && row[timeCol] != nil {
			tag = *row[timeCol]
		}
		return tag, vals, nil
	}
	return "", nil, errEmptyTable
}

func parseCells(row []*string, idx []int) ([]float64, bool) {
	vals := make([]float64, len(idx))
	for i, col := range idx {
		if col >= len(row) || row[col] == nil {
			return nil, false
		}
		v, err := strconv.ParseFloat(*row[col], 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}
