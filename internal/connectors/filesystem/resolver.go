package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath converts a file:// URI or a path with a leading ~ into a
// clean local path.
func ResolvePath(uri string) string {
	path := strings.TrimPrefix(uri, "file://")
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if path == "" {
		return path
	}
	return filepath.Clean(path)
}
