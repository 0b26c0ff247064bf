package history

import "strings"

// joinArtifacts stores artifact names comma separated.
func joinArtifacts(names []string) string {
	return strings.Join(names, ",")
}

func splitArtifacts(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
