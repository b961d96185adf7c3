package knol

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"regexp"
	"strings"

	"github.com/conorfennell/ankipack/internal/domain"
)

const base91 = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!#$%&()*+,-./:;<=>?@[]^_`{|}~"

var (
	htmlTag   = regexp.MustCompile(`(?s)<[^>]*>`)
	soundRef  = regexp.MustCompile(`\[sound:[^\]]+\]`)
	imageName = regexp.MustCompile(`(?i)<img[^>]+src=["']?([^"' >]+)[^>]*>`)
)

// Normalize concatenates the card's content after cleaning each part.
// Each part is lowercased, trimmed and has its line endings normalized;
// parts are joined with a newline so words in adjacent fields never merge.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		return strings.ReplaceAll(p, "\r\n", "\n")
	}
	return strings.Join([]string{
		normalizePart(card.Question),
		normalizePart(card.Answer),
		normalizePart(card.Context),
	}, "\n")
}

// Hash returns the note guid of a markdown card. Cards that normalize to the
// same content share a guid, so re-exports update notes instead of
// duplicating them.
func Hash(card domain.Card) string {
	return GUIDFor(Normalize(card))
}

// GUIDFor derives a compact guid from values: the first eight bytes of the
// SHA-256 of the values joined by "__", written in base 91.
func GUIDFor(values ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(values, "__")))
	n := binary.BigEndian.Uint64(sum[:8])
	if n == 0 {
		return string(base91[0])
	}
	var out []byte
	for n > 0 {
		out = append(out, base91[n%91])
		n /= 91
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// StripHTML removes markup from a field, keeping image file names and
// dropping sound references.
func StripHTML(field string) string {
	s := imageName.ReplaceAllString(field, " $1 ")
	s = soundRef.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return strings.TrimSpace(s)
}

// Checksum is the duplicate-detection checksum of a sort field: the first
// four bytes of the SHA-1 of the stripped field.
func Checksum(sortField string) int64 {
	sum := sha1.Sum([]byte(StripHTML(sortField)))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}
