package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF     = regexp.MustCompile(`\r\n?`)
	reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-=]{3,}\s*$`)
	reMultiNL  = regexp.MustCompile(`\n{3,}`)
)

// CleanText drops ruling-line noise and normalizes line endings in OCR output.
// Characters inside text lines are left alone so identifier extraction sees
// exactly what the engine produced.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiNL.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
