package backupid

import (
	"fmt"
	"regexp"
	"time"
)

// Location names the side of a mapping a backup was taken from.
type Location string

const (
	LocationSystem Location = "system"
	LocationRepo   Location = "repo"
)

// TimestampLayout is the fixed-width timestamp encoded into backup names.
// Because every field is zero-padded, lexicographic order of the encoded
// string equals chronological order; latest-backup selection relies on that.
const TimestampLayout = "20060102_150405"

// ID is the metadata encoded in a backup artifact's filename. The filename
// is the only persisted metadata for a backup, so an entry whose name does
// not parse cannot be attributed to a mapping.
type ID struct {
	// Config is the mapping name the backup belongs to.
	Config string
	// Loc is which side of the mapping was backed up.
	Loc Location
	// Timestamp is the encoded creation time (YYYYMMDD_HHMMSS).
	Timestamp string
}

// ParseError reports a backup name that does not match the
// {config}_{system|repo}_{timestamp} grammar.
type ParseError struct {
	Name string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("backup name %q does not match <config>_<system|repo>_<YYYYMMDD_HHMMSS>", e.Name)
}

var namePattern = regexp.MustCompile(`^(.+)_(system|repo)_(\d{8}_\d{6})$`)

// Parse decodes a backup artifact name into its ID. Names that do not match
// the grammar yield a *ParseError; no guess is made about intent.
func Parse(name string) (ID, error) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return ID{}, &ParseError{Name: name}
	}
	return ID{Config: m[1], Loc: Location(m[2]), Timestamp: m[3]}, nil
}

// Format renders the artifact name for a backup of config's loc side taken
// at ts.
func Format(config string, loc Location, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%s", config, loc, ts.Format(TimestampLayout))
}

// String returns the canonical artifact name.
func (id ID) String() string {
	return fmt.Sprintf("%s_%s_%s", id.Config, id.Loc, id.Timestamp)
}

// Time decodes the embedded timestamp.
func (id ID) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, id.Timestamp)
}
