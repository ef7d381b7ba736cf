package domain

import (
	"regexp"
	"strings"
)

var (
	indexUIDInvalid  = regexp.MustCompile(`[^a-z0-9_-]+`)
	indexUIDCollapse = regexp.MustCompile(`-{2,}`)
)

// SanitizeIndexUID turns a top-level folder name into a store-safe index
// identifier: lowercase, characters outside [a-z0-9_-] replaced with dashes,
// runs of dashes collapsed, leading/trailing dashes trimmed.
func SanitizeIndexUID(uid string) string {
	uid = strings.ToLower(strings.TrimSpace(uid))
	uid = indexUIDInvalid.ReplaceAllString(uid, "-")
	uid = indexUIDCollapse.ReplaceAllString(uid, "-")
	return strings.Trim(uid, "-")
}

// IndexForPath resolves the index uid for a slash-separated path relative to
// the watched root. The first path segment is the logical collection; files
// directly under the root have no index and are never processed.
func IndexForPath(relPath string) (string, bool) {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return "", false
	}
	parts := strings.SplitN(relPath, "/", 2)
	if len(parts) < 2 {
		return "", false
	}
	uid := SanitizeIndexUID(parts[0])
	if uid == "" {
		return "", false
	}
	return uid, true
}

// ValidDestination reports whether dest names a top-level folder of the
// watched root that the bulk refresh coordinator may swap. It must be a
// single clean path segment.
func ValidDestination(dest string) bool {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return false
	}
	if strings.ContainsAny(dest, "/\\") {
		return false
	}
	if dest == "." || dest == ".." || strings.HasPrefix(dest, ".") {
		return false
	}
	return true
}
