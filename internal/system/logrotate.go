package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var logrotateDirective = regexp.MustCompile(`^(\s+)(daily|weekly|monthly|rotate|dateext)`)

// UpdateLogrotateConf rewrites an existing logrotate configuration with
// the given rotation frequency and retention. Frequency replaces any
// daily/weekly/monthly directive; a non-zero retention replaces the rotate
// count and, when dateext is true, pins a dateext directive above it.
// Unrelated lines pass through untouched. A missing file yields an empty
// string, not an error.
func UpdateLogrotateConf(path, frequency string, retention int, dateext bool) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		m := logrotateDirective.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		indent, directive := m[1], m[2]

		switch {
		case frequency != "" && (directive == "daily" || directive == "weekly" || directive == "monthly"):
			out = append(out, indent+frequency)
		case retention != 0 && directive == "dateext":
			// dropped here, re-emitted next to rotate
		case retention != 0 && directive == "rotate":
			if dateext {
				out = append(out, indent+"dateext")
			}
			out = append(out, fmt.Sprintf("%srotate %d", indent, retention))
		default:
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}
