package scoring

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sentinel errors for this package.
var (
	ErrNoTarget     = errors.New("training data has no score column")
	ErrEmptyDataset = errors.New("training data has no rows")
	ErrNonNumeric   = errors.New("non-numeric feature value")
	ErrInvalidModel = errors.New("invalid model")
)

// targetColumn is matched case-insensitively.
const targetColumn = "score"

// teamNameColumns are tried in order, case-insensitively, in batch input.
var teamNameColumns = []string{"team name", "team_name", "team"}

// dataset is a parsed training table.
type dataset struct {
	features []string
	X        [][]float64
	y        []float64
}

// readDataset parses a training CSV: every column except the target is a
// numeric feature.
func readDataset(r io.Reader) (*dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read training header: %w", err)
	}

	target := -1
	ds := &dataset{}
	var featureCols []int
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if target < 0 && strings.EqualFold(h, targetColumn) {
			target = i
			continue
		}
		ds.features = append(ds.features, h)
		featureCols = append(featureCols, i)
	}
	if target < 0 {
		return nil, fmt.Errorf("%w: columns %s", ErrNoTarget, strings.Join(header, ", "))
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read training row %d: %w", line, err)
		}
		y, err := parseCell(rec[target])
		if err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", line, header[target], err)
		}
		x := make([]float64, len(featureCols))
		for j, c := range featureCols {
			if x[j], err = parseCell(rec[c]); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", line, header[c], err)
			}
		}
		ds.X = append(ds.X, x)
		ds.y = append(ds.y, y)
	}
	if len(ds.y) == 0 {
		return nil, ErrEmptyDataset
	}
	return ds, nil
}

// parseCell reads a numeric cell. Empty cells count as 0.
func parseCell(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNonNumeric, raw)
	}
	return v, nil
}

// findColumn returns the index of the first name matching one of the
// candidates, tried in candidate order, ignoring case.
func findColumn(header []string, candidates ...string) int {
	for _, c := range candidates {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), c) {
				return i
			}
		}
	}
	return -1
}
