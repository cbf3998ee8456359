package feed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/slco-2016/cTracksImporter/internal/model"
)

// TrailingLayout is a versioned descriptor of where the court fields
// sit within the trailing fields of a secondary feed row. Feed format
// revisions change this in one place instead of scattering indices.
type TrailingLayout struct {
	Version string
	// Count is how many trailing fields the layout consumes.
	Count int
	// Indices into the trailing slice of Count fields.
	Date         int
	Time         int
	Room         int
	LocationCode int
	Judge        int
}

// LayoutV1 matches the current Ctracks CSV export: the last five
// fields of every row are date, time, room, location code, judge.
var LayoutV1 = TrailingLayout{
	Version:      "v1",
	Count:        5,
	Date:         0,
	Time:         1,
	Room:         2,
	LocationCode: 3,
	Judge:        4,
}

// Correlate reads the comma-delimited secondary feed and joins it
// against the candidate keys from the primary feed. Matching is by
// exact key equality, never by line position; a line whose key is not
// among the candidates belongs to a client outside this run and is
// ignored. Each key binds to the first candidate slot holding it, and
// a later line for the same key overwrites that slot. A matched row
// with any of the trailing fields empty marks its slot unusable
// rather than erroring: partial rows are expected from the export.
// The result is the joined appointments in candidate order, unusable
// and unmatched slots removed.
func Correlate(candidates []string, r io.Reader, locations LocationTable, layout TrailingLayout) ([]model.Appointment, error) {
	slots := make([]*model.Appointment, len(candidates))
	index := make(map[string]int, len(candidates))
	for i, key := range candidates {
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ",")
		i, ok := index[fields[0]]
		if !ok {
			continue
		}
		slots[i] = join(candidates[i], fields, locations, layout)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read secondary feed: %w", err)
	}

	joined := make([]model.Appointment, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			joined = append(joined, *slot)
		}
	}
	return joined, nil
}

// join materializes one appointment from a matched row, or nil when
// the row is unusable.
func join(key string, fields []string, locations LocationTable, layout TrailingLayout) *model.Appointment {
	clientID, err := strconv.Atoi(key)
	if err != nil || clientID <= 0 {
		return nil
	}
	if len(fields) < layout.Count {
		return nil
	}

	trailing := fields[len(fields)-layout.Count:]
	for _, field := range trailing {
		if field == "" {
			return nil
		}
	}

	location, _ := locations.Resolve(trailing[layout.LocationCode])
	return &model.Appointment{
		ClientID:     clientID,
		Date:         trailing[layout.Date],
		Time:         trailing[layout.Time],
		Room:         trailing[layout.Room],
		LocationCode: trailing[layout.LocationCode],
		Location:     location,
		Judge:        TitleCase(trailing[layout.Judge]),
	}
}
