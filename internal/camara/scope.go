package camara

import (
	"sort"
	"strings"
)

// ScopeKey canonicalizes a set of scopes into a single cache key.
// Each argument may itself hold several space-separated scopes. The result
// is insensitive to order and duplicates.
func ScopeKey(scopes ...string) string {
	seen := make(map[string]struct{})
	for _, s := range scopes {
		for _, part := range strings.Fields(s) {
			seen[part] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(seen))
	for s := range seen {
		ordered = append(ordered, s)
	}
	sort.Strings(ordered)
	return strings.Join(ordered, " ")
}
