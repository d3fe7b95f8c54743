package constants

import (
	"strings"
)

// Source formats recorded on failures and used to pick a rasterizer.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the default accepted file extensions for a scan.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without a dot) is accepted.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToFormat returns PDF or IMAGE for an accepted extension, "" otherwise.
func MapExtToFormat(ext string) string {
	ext = NormalizeExt(ext)
	if !IsAllowedExt(ext) {
		return ""
	}
	if ext == "pdf" {
		return PDF
	}
	return IMAGE
}
