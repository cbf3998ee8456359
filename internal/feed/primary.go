package feed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PrimaryFieldCountV35 is the field count of a court-date row in the
// current Ctracks UNL export. Rows with 30 fields are results without
// a court date; the count has changed between export revisions, so it
// is passed into ScanCandidates rather than hardcoded there.
const PrimaryFieldCountV35 = 35

// ScanCandidates reads the pipe-delimited primary feed and returns, in
// read order, the first field of every line that splits into exactly
// fieldCount fields and whose first field is numeric. Anything else is
// discarded without error: the export intermixes non-record lines by
// design. Duplicate keys are preserved.
func ScanCandidates(r io.Reader, fieldCount int) ([]string, error) {
	var candidates []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "|")
		if len(fields) != fieldCount {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		candidates = append(candidates, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read primary feed: %w", err)
	}
	return candidates, nil
}
