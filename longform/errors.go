package longform

import "fmt"

// MissingColumnError reports that one of the fixed identity columns (name,
// taxonomy_id, taxonomy_lvl) is absent from the input header.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("input header has no %q column", e.Column)
}

// MalformedColumnNameError reports a measurement column whose name has no
// underscore, so it cannot be split into a sample and a measure.
type MalformedColumnNameError struct {
	Column string
	Index  int
}

func (e *MalformedColumnNameError) Error() string {
	return fmt.Sprintf("column %d (%q) has no underscore separating sample from measure", e.Index+1, e.Column)
}

// MalformedRowError reports a data row that cannot be mapped onto the header,
// either because it has more cells than the header has columns or because the
// delimited-text parser rejected it.
type MalformedRowError struct {
	Line int
	Err  error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}
