package stats

import (
	"fmt"
	"strings"
)

// NetworkError reports a dataset that could not be downloaded.
type NetworkError struct {
	Dataset    string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s from %s: unexpected status %d", e.Dataset, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s from %s: %v", e.Dataset, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a malformed row of a raw dataset.
type ParseError struct {
	Dataset string
	Line    int
	Field   string
	Value   string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s line %d: field %s: %s (value %q)", e.Dataset, e.Line, e.Field, e.Reason, e.Value)
}

// DataMismatchError reports datasets that cannot be combined, such as
// inconsistent age brackets or missing comparison data.
type DataMismatchError struct {
	Dataset  string
	Reason   string
	Brackets []AgeBracket
}

func (e *DataMismatchError) Error() string {
	msg := fmt.Sprintf("data mismatch in %s: %s", e.Dataset, e.Reason)
	if len(e.Brackets) == 0 {
		return msg
	}
	parts := make([]string, 0, len(e.Brackets))
	for _, b := range e.Brackets {
		parts = append(parts, fmt.Sprintf("%d", b))
	}
	return msg + " (brackets " + strings.Join(parts, ", ") + ")"
}
