package store

import (
	"strings"
	"unicode"
)

// CleanPath validates a caller-supplied path and returns it in canonical
// form. Backslashes become slashes, leading slashes and empty segments are
// dropped, and the result must lie strictly inside root. Any ".." segment is
// rejected outright.
func CleanPath(root, input string) (string, error) {
	const op = "store.CleanPath"

	p := strings.TrimSpace(input)
	if p == "" {
		return "", E(KindPathInvalid, op, "missing file path")
	}
	if strings.IndexFunc(p, unicode.IsControl) >= 0 {
		return "", E(KindPathInvalid, op, "invalid path")
	}

	p = strings.ReplaceAll(p, `\`, "/")
	var segments []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			continue
		case "..", ".":
			return "", E(KindPathInvalid, op, "invalid path")
		}
		segments = append(segments, seg)
	}

	cleaned := strings.Join(segments, "/")
	prefix := strings.Trim(root, "/") + "/"
	if !strings.HasPrefix(cleaned, prefix) || len(cleaned) == len(prefix) {
		return "", E(KindPathInvalid, op, "invalid path")
	}
	return cleaned, nil
}
