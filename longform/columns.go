package longform

import "strings"

// Fixed identity columns, copied verbatim into every output row.
const (
	ColumnName        = "name"
	ColumnTaxonomyID  = "taxonomy_id"
	ColumnTaxonomyLvl = "taxonomy_lvl"
)

// Measure suffixes that feed the num/frac latch. Any other suffix is ignored.
const (
	MeasureNum  = "num"
	MeasureFrac = "frac"
)

// OutputHeader is the fixed header of the long table.
var OutputHeader = []string{
	ColumnName,
	ColumnTaxonomyID,
	ColumnTaxonomyLvl,
	"sample",
	"abundance_num",
	"abundance_frac",
}

// SplitColumnName splits a measurement column name at its last underscore.
// Sample IDs may themselves contain underscores; the measure never does. ok
// is false when the name contains no underscore at all.
func SplitColumnName(column string) (sample, measure string, ok bool) {
	i := strings.LastIndexByte(column, '_')
	if i < 0 {
		return "", "", false
	}

	return column[:i], column[i+1:], true
}

// measurementColumn is one non-fixed column of the input header. idx points
// at the cell holding its value.
type measurementColumn struct {
	name    string
	sample  string
	measure string
	idx     int
}

// layout maps the input header onto the cells the converter needs.
type layout struct {
	name        int
	taxonomyID  int
	taxonomyLvl int

	measurements []measurementColumn

	// width is the number of cells in the header line. Wider data rows cannot
	// be attributed to any column.
	width int
}

// parseHeader builds the layout for a header line. A column name that occurs
// more than once is visited at its first position but reads the cell of its
// last occurrence, which is how a name-keyed row behaves.
func parseHeader(header []string) (*layout, error) {
	lay := &layout{
		name:        -1,
		taxonomyID:  -1,
		taxonomyLvl: -1,
		width:       len(header),
	}

	var malformed error
	seen := make(map[string]int, len(header))
	for idx, column := range header {
		switch column {
		case ColumnName:
			lay.name = idx
			continue
		case ColumnTaxonomyID:
			lay.taxonomyID = idx
			continue
		case ColumnTaxonomyLvl:
			lay.taxonomyLvl = idx
			continue
		}

		if pos, exists := seen[column]; exists {
			lay.measurements[pos].idx = idx
			continue
		}

		sample, measure, ok := SplitColumnName(column)
		if !ok {
			if malformed == nil {
				malformed = &MalformedColumnNameError{Column: column, Index: idx}
			}
			continue
		}

		seen[column] = len(lay.measurements)
		lay.measurements = append(lay.measurements, measurementColumn{
			name:    column,
			sample:  sample,
			measure: measure,
			idx:     idx,
		})
	}

	for _, fixed := range []struct {
		column string
		idx    int
	}{
		{ColumnName, lay.name},
		{ColumnTaxonomyID, lay.taxonomyID},
		{ColumnTaxonomyLvl, lay.taxonomyLvl},
	} {
		if fixed.idx < 0 {
			return nil, &MissingColumnError{Column: fixed.column}
		}
	}

	// A missing identity column is reported ahead of a malformed measurement
	// column, since rows are keyed on identity before measurements are split.
	if malformed != nil {
		return nil, malformed
	}

	return lay, nil
}

// cell returns the value at idx, or "" when the row is shorter than the
// header.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}

	return row[idx]
}
