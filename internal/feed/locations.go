package feed

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LocationTable maps a zero-stripped Ctracks location code to a
// courthouse display name.
type LocationTable map[string]string

var titleCaser = cases.Title(language.AmericanEnglish)

// addressSuffixes is the enumerated set of courthouses whose display
// name carries a street address. Additions go here, not inline.
var addressSuffixes = map[string]string{
	"Salt Lake District":     " (Matheson Courthouse 450 South State St) ",
	"Salt Lake City Justice": " (333 S 200 E) ",
	// TODO: address for Salt Lake County Justice is unknown
	"South Jordan Justice": " (8080 S Redwood Rd. Ste. 1701) ",
	"West Valley Justice":  " (1600 West Towne Center Drive) ",
	"Midvale Justice":      " 7505 S. Holden St ",
	"West Jordan Justice":  " (8040 South Redwood Road) ",
}

// TitleCase uppercases the first letter of each whitespace-separated
// word and lowercases the remainder. Empty input stays empty.
func TitleCase(words string) string {
	if words == "" {
		return ""
	}
	return titleCaser.String(words)
}

// StripLeadingZeros normalizes a location code for table lookup, so
// "007" and "7" resolve identically. An all-zero code collapses to "0".
func StripLeadingZeros(code string) string {
	stripped := strings.TrimLeft(code, "0")
	if stripped == "" && code != "" {
		return "0"
	}
	return stripped
}

// ParseLocationTable reads the comma-delimited court locations
// reference file. Each row is [code, rawName, ...]; rows missing the
// name column are skipped. An unreadable table is fatal to the run, so
// the error propagates.
func ParseLocationTable(r io.Reader) (LocationTable, error) {
	table := LocationTable{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			continue
		}
		name := TitleCase(fields[1])
		if suffix, ok := addressSuffixes[name]; ok {
			name += suffix
		}
		table[StripLeadingZeros(fields[0])] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read location table: %w", err)
	}
	return table, nil
}

// Resolve looks up a location code, stripping leading zeros first.
// The second result is false when the code has no entry; callers treat
// that as a missing enrichment, not an error.
func (t LocationTable) Resolve(code string) (string, bool) {
	name, ok := t[StripLeadingZeros(code)]
	return name, ok
}
