package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pallet-scanner/constants"
)

// AllowedExt checks ext against allowed, or the default set when allowed is nil.
func AllowedExt(allowed map[string]struct{}, ext string) bool {
	if allowed == nil {
		return constants.IsAllowedExt(ext)
	}
	_, ok := allowed[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && base != ".." && strings.HasPrefix(base, ".")
}
