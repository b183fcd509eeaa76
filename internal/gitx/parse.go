package gitx

import (
	"sort"
	"strings"
)

const submoduleKeyPrefix = "submodule."

// ParseConfig extracts `submodule.<name>.<attribute> <value>` entries from
// `git config --get-regexp` output into a name -> value map. Blank lines,
// other sections and other attributes are skipped. Names may contain dots.
func ParseConfig(stdout, attribute string) map[string]string {
	out := make(map[string]string)
	suffix := "." + attribute

	for _, line := range strings.Split(stdout, "\n") {
		key, value, ok := cutSpace(strings.TrimSpace(line))
		if !ok {
			continue
		}
		if !strings.HasPrefix(key, submoduleKeyPrefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		if len(key) <= len(submoduleKeyPrefix)+len(suffix) {
			continue
		}
		out[key[len(submoduleKeyPrefix):len(key)-len(suffix)]] = value
	}
	return out
}

// cutSpace splits line at its first run of whitespace. Both parts must be non-empty.
func cutSpace(line string) (string, string, bool) {
	i := strings.IndexAny(line, " \t")
	if i <= 0 {
		return "", "", false
	}
	value := strings.TrimSpace(line[i:])
	if value == "" {
		return "", "", false
	}
	return line[:i], value, true
}

// ActiveNames applies git's active-submodule rule: a submodule is active
// when submodule.<name>.active is true, or when no active key exists and
// submodule.<name>.url is set. An explicit false wins over a url.
func ActiveNames(active, url map[string]string) []string {
	seen := make(map[string]struct{}, len(active)+len(url))
	for name := range active {
		seen[name] = struct{}{}
	}
	for name := range url {
		seen[name] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		if flag, ok := active[name]; ok {
			if isTrue(flag) {
				out = append(out, name)
			}
			continue
		}
		if url[name] != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// isTrue accepts the spellings git itself treats as boolean true.
func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "on", "1":
		return true
	}
	return false
}

// ParseStatusLine parses one `git submodule` status line of the form
// `<hash> <name> (<description>)`. It returns false for blank or
// malformed lines.
func ParseStatusLine(line string) (Record, bool) {
	fields := strings.Fields(line)

	switch {
	case len(fields) == 2:
		return Record{Hash: fields[0], Name: fields[1]}, true
	case len(fields) == 3:
		return Record{
			Hash:        fields[0],
			Name:        fields[1],
			Initialized: true,
			Description: strings.TrimSuffix(strings.TrimPrefix(fields[2], "("), ")"),
		}, true
	case len(fields) > 3:
		// describe output with spaces is only accepted when parenthesized
		desc := strings.Join(fields[2:], " ")
		if !strings.HasPrefix(desc, "(") || !strings.HasSuffix(desc, ")") {
			return Record{}, false
		}
		return Record{
			Hash:        fields[0],
			Name:        fields[1],
			Initialized: true,
			Description: desc[1 : len(desc)-1],
		}, true
	default:
		return Record{}, false
	}
}

// ParseStatus parses every recognizable line of `git submodule` output.
func ParseStatus(stdout string) []Record {
	var out []Record
	for _, line := range strings.Split(stdout, "\n") {
		if rec, ok := ParseStatusLine(line); ok {
			out = append(out, rec)
		}
	}
	return out
}
