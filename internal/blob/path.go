package blob

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"syndic/internal/core"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// SanitizeSegment makes a user-controlled string safe for use as a storage
// path segment: diacritics are stripped via NFD decomposition, whitespace
// runs collapse to a single underscore, and anything outside [A-Za-z0-9._-]
// is removed. The result carries no separators, so joining sanitized
// segments can never traverse outside the bucket.
func SanitizeSegment(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	out := whitespaceRun.ReplaceAllString(b.String(), "_")
	return unsafeChars.ReplaceAllString(out, "")
}

// ReceiptPath builds the storage path for a due receipt. The timestamp keeps
// repeated uploads for the same cell from colliding.
func ReceiptPath(unitID int64, month core.Month, year int, filename string, now time.Time) string {
	base := fmt.Sprintf("%d_%s_%d_%d", unitID, SanitizeSegment(month.Name()), year, now.UnixMilli())
	if name := SanitizeSegment(filename); name != "" {
		return base + "_" + name
	}
	return base + ".pdf"
}

// JustificationPath builds the storage path for a charge justification.
func JustificationPath(chargeID int64, filename string, now time.Time) string {
	base := fmt.Sprintf("%d_%d", chargeID, now.UnixMilli())
	if name := SanitizeSegment(filename); name != "" {
		return base + "_" + name
	}
	return base
}
