package correlation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// NormalizeTitle lowercases, masks digit runs with "N", folds punctuation
// into spaces, and collapses whitespace. "Disk 85% full on /var" and
// "Disk 92% full on /var" normalize identically.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingSpace := false
	inDigits := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsDigit(r):
			if !inDigits {
				if pendingSpace && b.Len() > 0 {
					b.WriteByte(' ')
				}
				pendingSpace = false
				b.WriteByte('N')
			}
			inDigits = true
		case unicode.IsLetter(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			inDigits = false
			b.WriteRune(r)
		default:
			// whitespace and punctuation both separate words
			pendingSpace = true
			inDigits = false
		}
	}
	return b.String()
}

// Fingerprint derives the dedup key for an alert: services, hosts, and
// normalized titles hash to the same value regardless of embedded numbers.
func Fingerprint(service, host, title string) string {
	h := sha256.Sum256([]byte(service + ":" + host + ":" + NormalizeTitle(title)))
	return hex.EncodeToString(h[:])[:16]
}
