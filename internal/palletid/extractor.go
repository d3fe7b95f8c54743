// Package palletid pulls 18-digit pallet identifiers out of page text.
package palletid

import (
	"fmt"
	"regexp"
	"strings"
)

// Length is the fixed width of a pallet identifier (SSCC-style barcode payload).
const Length = 18

// Strategy selects how identifiers are recovered from text.
type Strategy int

const (
	// Strict matches marker-prefixed or standalone 18-digit runs only.
	Strict Strategy = iota
	// Tolerant fixes common OCR confusions and stitches fragmented digit runs.
	Tolerant
)

func (s Strategy) String() string {
	switch s {
	case Strict:
		return "strict"
	case Tolerant:
		return "tolerant"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy accepts "strict"/"a" and "tolerant"/"b", case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "a":
		return Strict, nil
	case "tolerant", "b":
		return Tolerant, nil
	default:
		return Strict, fmt.Errorf("unknown extraction strategy %q (want strict or tolerant)", s)
	}
}

var (
	// marker group 1 holds the digits after "(00" / "(00)"; otherwise the whole match is the id.
	reMarked     = regexp.MustCompile(`\(00\)?(\d{18})|\b\d{18}\b`)
	reStandalone = regexp.MustCompile(`\b\d{18}\b`)
	reChunk      = regexp.MustCompile(`\d{3,}`)
	reExact      = regexp.MustCompile(`^\d{18}$`)
)

var confusions = strings.NewReplacer(
	"O", "0",
	"I", "1",
	"l", "1",
	"|", "1",
)

// Extract returns the distinct identifiers found in text, in first-seen order.
// It never fails; text without identifiers yields an empty slice.
func Extract(text string, strategy Strategy) []string {
	switch strategy {
	case Tolerant:
		return extractTolerant(text)
	default:
		return extractStrict(text)
	}
}

// Normalize applies the OCR confusion fixes used by Tolerant to the whole text.
// Letters outside numeric context are rewritten too.
func Normalize(text string) string {
	return confusions.Replace(text)
}

// Valid reports whether id is exactly 18 ASCII digits.
func Valid(id string) bool {
	return reExact.MatchString(id)
}

// Union merges identifier lists with set semantics, keeping first-seen order.
func Union(sets ...[]string) []string {
	s := newSet()
	for _, ids := range sets {
		for _, id := range ids {
			s.add(id)
		}
	}
	return s.list()
}

func extractStrict(text string) []string {
	s := newSet()
	for _, m := range reMarked.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			s.add(m[1])
			continue
		}
		s.add(m[0])
	}
	return s.list()
}

func extractTolerant(text string) []string {
	text = Normalize(text)

	s := newSet()
	for _, id := range reStandalone.FindAllString(text, -1) {
		s.add(id)
	}
	for _, id := range stitch(reChunk.FindAllString(text, -1)) {
		s.add(id)
	}
	return s.list()
}

// stitch concatenates consecutive chunks from every start index until the
// combined length reaches Length. Exactly Length is a candidate; overshooting
// drops that start index. Unrelated neighbouring numbers can combine into a
// spurious candidate; callers accept that trade for recall.
func stitch(chunks []string) []string {
	var out []string
	for i := range chunks {
		var b strings.Builder
		for j := i; j < len(chunks) && b.Len() < Length; j++ {
			b.WriteString(chunks[j])
		}
		if b.Len() == Length {
			out = append(out, b.String())
		}
	}
	return out
}

type set struct {
	seen  map[string]struct{}
	order []string
}

func newSet() *set {
	return &set{seen: make(map[string]struct{})}
}

func (s *set) add(id string) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *set) list() []string {
	if s.order == nil {
		return []string{}
	}
	return s.order
}
