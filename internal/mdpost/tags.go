package mdpost

import "strings"

// SplitTags converts a comma-separated tag list (as given on the command
// line) into whole tags. Leading '#' characters and surrounding whitespace are
// removed and empty entries are skipped.
func SplitTags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return UniqueTags(strings.Split(csv, ","))
}

// UniqueTags normalizes tags and removes exact duplicates, keeping the order
// of first appearance.
func UniqueTags(tags ...[]string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, group := range tags {
		for _, raw := range group {
			tag := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "#"))
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
